package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
)

type countingStorage struct {
	mu        sync.Mutex
	saveCount int
	loaded    *core.RequestStats
	loadErr   error
}

func (s *countingStorage) SaveStats(_ *core.RequestStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCount++
	return nil
}

func (s *countingStorage) LoadStats() (*core.RequestStats, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.loaded != nil {
		return s.loaded, nil
	}
	return &core.RequestStats{}, nil
}

func (s *countingStorage) Close() error { return nil }

func (s *countingStorage) getSaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

func newTestMetrics(t *testing.T, historySize int, storage core.StorageInterface) *MetricsService {
	t.Helper()
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Hour,
		HistorySize:  historySize,
		Storage:      storage,
		Logger:       &core.NopLogger{},
	})
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

func TestMetricsService_RecordRequest(t *testing.T) {
	ms := newTestMetrics(t, 10, nil)

	ms.RecordRequest(true, 100, "apple-fm-base", false)
	ms.RecordRequest(false, 200, "apple-fm-base", true)
	ms.RecordRequest(true, 150, "apple-fm-creative", true)

	stats := ms.GetRequestStats()
	if stats.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 2 || stats.FailedRequests != 1 {
		t.Errorf("Expected 2/1 success/failure, got %d/%d", stats.SuccessfulRequests, stats.FailedRequests)
	}
	if stats.StreamRequests != 2 {
		t.Errorf("Expected 2 stream requests, got %d", stats.StreamRequests)
	}
	if len(stats.RequestHistory) != 3 {
		t.Errorf("GetRequestStats should flush pending records, got %d", len(stats.RequestHistory))
	}
}

func TestMetricsService_Snapshot(t *testing.T) {
	ms := newTestMetrics(t, 10, nil)

	ms.RecordRequest(true, 100, "apple-fm-base", false)
	ms.RecordRequest(false, 300, "apple-fm-base", true)
	ms.RecordRequest(true, 200, "apple-fm-deterministic", false)
	ms.RecordHTTPRequest(5 * time.Millisecond)
	ms.RecordCacheHit()
	ms.RecordCacheMiss()
	ms.RecordCacheMiss()

	snap := ms.Snapshot()
	if snap.TotalRequests != 3 || snap.Streamed != 1 {
		t.Errorf("unexpected totals: %+v", snap)
	}
	if snap.AvgResponseTime != 200 {
		t.Errorf("Expected avg 200ms, got %d", snap.AvgResponseTime)
	}
	if snap.HTTPRequests != 1 || snap.CacheHits != 1 || snap.CacheMisses != 2 {
		t.Errorf("unexpected counters: http=%d hits=%d misses=%d", snap.HTTPRequests, snap.CacheHits, snap.CacheMisses)
	}
	base := snap.Models["apple-fm-base"]
	if base.Requests != 2 || base.Successful != 1 {
		t.Errorf("unexpected base model stats: %+v", base)
	}
	if snap.Stats24h.Requests != 3 {
		t.Errorf("Expected 3 requests in 24h window, got %d", snap.Stats24h.Requests)
	}
	if snap.CurrentQPS <= 0 {
		t.Errorf("QPS should be positive after recent requests, got %f", snap.CurrentQPS)
	}
}

func TestMetricsService_GetQPS_Empty(t *testing.T) {
	ms := newTestMetrics(t, 10, nil)
	if qps := ms.GetQPS(); qps != 0 {
		t.Errorf("Expected 0 QPS with no requests, got %f", qps)
	}
}

func TestMetricsService_MaxHistorySize(t *testing.T) {
	ms := newTestMetrics(t, 3, nil)

	for i := 0; i < 5; i++ {
		ms.RecordRequest(true, 100, "model", false)
	}

	stats := ms.GetRequestStats()
	if len(stats.RequestHistory) != 3 {
		t.Errorf("History should be capped at 3, got %d", len(stats.RequestHistory))
	}
	if stats.TotalRequests != 5 {
		t.Errorf("Counters are not capped, got %d", stats.TotalRequests)
	}
}

func TestMetricsService_DefaultHistorySize(t *testing.T) {
	ms := newTestMetrics(t, 0, nil)
	if ms.maxHistorySize != core.HistoryBufferSize {
		t.Errorf("Expected default history size %d, got %d", core.HistoryBufferSize, ms.maxHistorySize)
	}
}

func TestMetricsService_LoadStats(t *testing.T) {
	now := time.Now()
	st := &countingStorage{loaded: &core.RequestStats{
		TotalRequests:      4,
		SuccessfulRequests: 3,
		FailedRequests:     1,
		StreamRequests:     2,
		LastRequestTime:    now,
		RequestHistory: []core.RequestRecord{
			{Timestamp: now, Success: true, Model: "apple-fm-base"},
		},
	}}
	ms := newTestMetrics(t, 10, st)

	if err := ms.LoadStats(); err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	stats := ms.GetRequestStats()
	if stats.TotalRequests != 4 || stats.StreamRequests != 2 || len(stats.RequestHistory) != 1 {
		t.Errorf("unexpected restored stats: %+v", stats)
	}

	failing := newTestMetrics(t, 10, &countingStorage{loadErr: errors.New("boom")})
	if err := failing.LoadStats(); err == nil {
		t.Error("expected load error to propagate")
	}
}

func TestRecordSuccessAndFailureWithMetrics(t *testing.T) {
	ms := newTestMetrics(t, 10, nil)

	RecordSuccessWithMetrics(ms, time.Now(), "apple-fm-base", false)
	RecordFailureWithMetrics(ms, time.Now(), "apple-fm-base", true)

	stats := ms.GetRequestStats()
	if stats.SuccessfulRequests != 1 || stats.FailedRequests != 1 {
		t.Errorf("Expected 1/1 success/failure, got %d/%d", stats.SuccessfulRequests, stats.FailedRequests)
	}
}

func TestGetPeriodStats(t *testing.T) {
	now := time.Now()
	history := []core.RequestRecord{
		{Timestamp: now.Add(-time.Hour), Success: true, ResponseTime: 100},
		{Timestamp: now.Add(-48 * time.Hour), Success: false, ResponseTime: 300},
	}

	periods := GetPeriodStats(history, 24, 24*7)
	if periods[24].Requests != 1 || periods[24].SuccessRate != 100 {
		t.Errorf("unexpected 24h stats: %+v", periods[24])
	}
	if periods[24*7].Requests != 2 || periods[24*7].AvgResponseTime != 200 {
		t.Errorf("unexpected 7d stats: %+v", periods[24*7])
	}
	if GetPeriodStats(history) != nil {
		t.Error("no periods should yield nil")
	}
}

func TestMetricsService_Close_Idempotent(t *testing.T) {
	st := &countingStorage{}
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Hour,
		HistorySize:  10,
		Storage:      st,
		Logger:       &core.NopLogger{},
	})

	ms.RecordRequest(true, 10, "apple-fm-base", false)

	if err := ms.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	firstCloseSaves := st.getSaveCount()
	if firstCloseSaves == 0 {
		t.Fatal("first Close should persist at least once")
	}

	if err := ms.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if st.getSaveCount() != firstCloseSaves {
		t.Fatalf("second Close must not persist again: first=%d after=%d", firstCloseSaves, st.getSaveCount())
	}
}
