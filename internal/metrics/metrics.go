package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
)

// AtomicRequestStats thread-safe request statistics
type AtomicRequestStats struct {
	TotalRequests      atomic.Int64
	SuccessfulRequests atomic.Int64
	FailedRequests     atomic.Int64
	StreamRequests     atomic.Int64
	TotalResponseTime  atomic.Int64
	HTTPRequests       atomic.Int64
	HTTPTime           atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
}

// MetricsConfig configuration for MetricsService
type MetricsConfig struct {
	SaveInterval time.Duration
	HistorySize  int
	Storage      core.StorageInterface
	Logger       core.Logger
}

// MetricsService collects gateway request metrics and persists them
// through the configured storage.
type MetricsService struct {
	atomicStats      AtomicRequestStats
	requestHistory   []core.RequestRecord
	historyMu        sync.RWMutex
	lastRequestTime  time.Time
	maxHistorySize   int
	storage          core.StorageInterface
	logger           core.Logger
	lastSaveTime     time.Time
	minSaveInterval  time.Duration
	done             chan struct{}
	closeOnce        sync.Once
	historyBuffer    []core.RequestRecord
	bufferMu         sync.Mutex
	bufferFlushTimer *time.Ticker
	recentRequests   []time.Time
	recentMu         sync.Mutex
}

// Snapshot is the view served by the stats endpoint.
type Snapshot struct {
	CurrentTime     string                     `json:"current_time"`
	CurrentQPS      float64                    `json:"current_qps"`
	TotalRequests   int64                      `json:"total_requests"`
	Successful      int64                      `json:"successful_requests"`
	Failed          int64                      `json:"failed_requests"`
	Streamed        int64                      `json:"stream_requests"`
	AvgResponseTime int64                      `json:"avg_response_time_ms"`
	HTTPRequests    int64                      `json:"http_requests"`
	CacheHits       int64                      `json:"cache_hits"`
	CacheMisses     int64                      `json:"cache_misses"`
	TotalRecords    int                        `json:"total_records"`
	Models          map[string]core.ModelStats `json:"models"`
	Stats24h        core.PeriodStats           `json:"stats_24h"`
	Stats7d         core.PeriodStats           `json:"stats_7d"`
	Stats30d        core.PeriodStats           `json:"stats_30d"`
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(config MetricsConfig) *MetricsService {
	if config.HistorySize <= 0 {
		config.HistorySize = core.HistoryBufferSize
	}
	if config.Logger == nil {
		config.Logger = &core.NopLogger{}
	}

	ms := &MetricsService{
		maxHistorySize:  config.HistorySize,
		storage:         config.Storage,
		logger:          config.Logger,
		minSaveInterval: config.SaveInterval,
		done:            make(chan struct{}),
		historyBuffer:   make([]core.RequestRecord, 0, core.HistoryBatchSize),
	}

	ms.bufferFlushTimer = time.NewTicker(core.HistoryFlushInterval)
	go ms.flushLoop()

	return ms
}

func (ms *MetricsService) flushLoop() {
	for {
		select {
		case <-ms.bufferFlushTimer.C:
			ms.flushBuffer()
		case <-ms.done:
			return
		}
	}
}

func (ms *MetricsService) flushBuffer() {
	ms.bufferMu.Lock()
	if len(ms.historyBuffer) == 0 {
		ms.bufferMu.Unlock()
		return
	}
	batch := ms.historyBuffer
	ms.historyBuffer = make([]core.RequestRecord, 0, core.HistoryBatchSize)
	ms.bufferMu.Unlock()

	ms.historyMu.Lock()
	ms.requestHistory = append(ms.requestHistory, batch...)
	if len(ms.requestHistory) > ms.maxHistorySize {
		ms.requestHistory = ms.requestHistory[len(ms.requestHistory)-ms.maxHistorySize:]
	}
	ms.historyMu.Unlock()
}

// RecordRequest records one chat completion outcome
func (ms *MetricsService) RecordRequest(success bool, responseTime int64, model string, stream bool) {
	now := time.Now()
	ms.historyMu.Lock()
	ms.lastRequestTime = now
	ms.historyMu.Unlock()
	ms.atomicStats.TotalRequests.Add(1)
	ms.atomicStats.TotalResponseTime.Add(responseTime)

	if success {
		ms.atomicStats.SuccessfulRequests.Add(1)
	} else {
		ms.atomicStats.FailedRequests.Add(1)
	}
	if stream {
		ms.atomicStats.StreamRequests.Add(1)
	}

	ms.recentMu.Lock()
	ms.recentRequests = append(ms.recentRequests, now)
	ms.pruneRecentLocked(now)
	ms.recentMu.Unlock()

	record := core.RequestRecord{
		Timestamp:    now,
		Success:      success,
		ResponseTime: responseTime,
		Model:        model,
		Stream:       stream,
	}

	ms.bufferMu.Lock()
	ms.historyBuffer = append(ms.historyBuffer, record)
	shouldFlush := len(ms.historyBuffer) >= core.HistoryBatchSize
	ms.bufferMu.Unlock()

	if shouldFlush {
		ms.flushBuffer()
	}

	ms.SaveStatsDebounced()
}

// RecordHTTPRequest records the duration of any served HTTP request
func (ms *MetricsService) RecordHTTPRequest(duration time.Duration) {
	ms.atomicStats.HTTPRequests.Add(1)
	ms.atomicStats.HTTPTime.Add(duration.Milliseconds())
}

// RecordCacheHit records a status cache hit
func (ms *MetricsService) RecordCacheHit() {
	ms.atomicStats.CacheHits.Add(1)
}

// RecordCacheMiss records a status cache miss
func (ms *MetricsService) RecordCacheMiss() {
	ms.atomicStats.CacheMisses.Add(1)
}

// pruneRecentLocked drops entries older than one minute. recentMu must be held.
func (ms *MetricsService) pruneRecentLocked(now time.Time) {
	cutoff := now.Add(-1 * time.Minute)
	startIdx := 0
	for startIdx < len(ms.recentRequests) && ms.recentRequests[startIdx].Before(cutoff) {
		startIdx++
	}
	if startIdx > 0 {
		newRecent := make([]time.Time, len(ms.recentRequests)-startIdx)
		copy(newRecent, ms.recentRequests[startIdx:])
		ms.recentRequests = newRecent
	}
}

// GetQPS returns the request rate over the last minute
func (ms *MetricsService) GetQPS() float64 {
	ms.recentMu.Lock()
	defer ms.recentMu.Unlock()

	ms.pruneRecentLocked(time.Now())
	if len(ms.recentRequests) == 0 {
		return 0
	}

	return math.Round(float64(len(ms.recentRequests))/60.0*1000) / 1000
}

// GetRequestStats returns current stats snapshot
func (ms *MetricsService) GetRequestStats() core.RequestStats {
	ms.flushBuffer()
	ms.historyMu.RLock()
	defer ms.historyMu.RUnlock()

	historyCopy := make([]core.RequestRecord, len(ms.requestHistory))
	copy(historyCopy, ms.requestHistory)

	return core.RequestStats{
		TotalRequests:      ms.atomicStats.TotalRequests.Load(),
		SuccessfulRequests: ms.atomicStats.SuccessfulRequests.Load(),
		FailedRequests:     ms.atomicStats.FailedRequests.Load(),
		StreamRequests:     ms.atomicStats.StreamRequests.Load(),
		TotalResponseTime:  ms.atomicStats.TotalResponseTime.Load(),
		LastRequestTime:    ms.lastRequestTime,
		RequestHistory:     historyCopy,
	}
}

// Snapshot assembles the stats endpoint payload.
func (ms *MetricsService) Snapshot() Snapshot {
	stats := ms.GetRequestStats()
	periods := GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)

	snap := Snapshot{
		CurrentTime:   time.Now().Format(core.TimeFormatDateTime),
		CurrentQPS:    ms.GetQPS(),
		TotalRequests: stats.TotalRequests,
		Successful:    stats.SuccessfulRequests,
		Failed:        stats.FailedRequests,
		Streamed:      stats.StreamRequests,
		HTTPRequests:  ms.atomicStats.HTTPRequests.Load(),
		CacheHits:     ms.atomicStats.CacheHits.Load(),
		CacheMisses:   ms.atomicStats.CacheMisses.Load(),
		TotalRecords:  len(stats.RequestHistory),
		Models:        GetModelStats(stats.RequestHistory),
		Stats24h:      periods[24],
		Stats7d:       periods[24*7],
		Stats30d:      periods[24*30],
	}
	if stats.TotalRequests > 0 {
		snap.AvgResponseTime = stats.TotalResponseTime / stats.TotalRequests
	}
	return snap
}

// GetModelStats counts history records per model.
func GetModelStats(history []core.RequestRecord) map[string]core.ModelStats {
	result := make(map[string]core.ModelStats)
	for _, record := range history {
		s := result[record.Model]
		s.Requests++
		if record.Success {
			s.Successful++
		}
		result[record.Model] = s
	}
	return result
}

// GetPeriodStats computes period statistics for multiple hour windows in a single pass.
func GetPeriodStats(history []core.RequestRecord, hourPeriods ...int) map[int]core.PeriodStats {
	if len(hourPeriods) == 0 {
		return nil
	}

	now := time.Now()
	cutoffs := make([]time.Time, len(hourPeriods))
	requests := make([]int64, len(hourPeriods))
	successful := make([]int64, len(hourPeriods))
	responseTime := make([]int64, len(hourPeriods))

	for i, hours := range hourPeriods {
		cutoffs[i] = now.Add(-time.Duration(hours) * time.Hour)
	}

	for _, record := range history {
		for i, cutoff := range cutoffs {
			if record.Timestamp.After(cutoff) {
				requests[i]++
				responseTime[i] += record.ResponseTime
				if record.Success {
					successful[i]++
				}
			}
		}
	}

	result := make(map[int]core.PeriodStats, len(hourPeriods))
	for i, hours := range hourPeriods {
		stats := core.PeriodStats{
			Requests: requests[i],
			QPS:      float64(requests[i]) / (float64(hours) * 3600.0),
		}
		if requests[i] > 0 {
			stats.SuccessRate = float64(successful[i]) / float64(requests[i]) * 100
			stats.AvgResponseTime = responseTime[i] / requests[i]
		}
		result[hours] = stats
	}
	return result
}

// LoadStats loads stats from storage
func (ms *MetricsService) LoadStats() error {
	if ms.storage == nil {
		return nil
	}
	stats, err := ms.storage.LoadStats()
	if err != nil {
		return err
	}

	ms.atomicStats.TotalRequests.Store(stats.TotalRequests)
	ms.atomicStats.SuccessfulRequests.Store(stats.SuccessfulRequests)
	ms.atomicStats.FailedRequests.Store(stats.FailedRequests)
	ms.atomicStats.StreamRequests.Store(stats.StreamRequests)
	ms.atomicStats.TotalResponseTime.Store(stats.TotalResponseTime)

	ms.historyMu.Lock()
	ms.lastRequestTime = stats.LastRequestTime
	ms.requestHistory = stats.RequestHistory
	if len(ms.requestHistory) > ms.maxHistorySize {
		ms.requestHistory = ms.requestHistory[len(ms.requestHistory)-ms.maxHistorySize:]
	}
	ms.historyMu.Unlock()

	return nil
}

// SaveStatsDebounced saves stats at most once per save interval
func (ms *MetricsService) SaveStatsDebounced() {
	now := time.Now()
	ms.historyMu.Lock()
	if now.Sub(ms.lastSaveTime) < ms.minSaveInterval {
		ms.historyMu.Unlock()
		return
	}
	ms.lastSaveTime = now
	ms.historyMu.Unlock()

	if ms.storage == nil {
		return
	}

	stats := ms.GetRequestStats()
	if err := ms.storage.SaveStats(&stats); err != nil {
		ms.logger.Warn("Failed to save stats: %v", err)
	}
}

// Close saves final stats and stops the flush loop. Later calls are no-ops.
func (ms *MetricsService) Close() error {
	var err error
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.bufferFlushTimer.Stop()
		ms.flushBuffer()

		if ms.storage != nil {
			stats := ms.GetRequestStats()
			err = ms.storage.SaveStats(&stats)
		}
	})
	return err
}

// RecordSuccessWithMetrics records successful request
func RecordSuccessWithMetrics(metrics core.MetricsCollector, startTime time.Time, model string, stream bool) {
	metrics.RecordRequest(true, time.Since(startTime).Milliseconds(), model, stream)
}

// RecordFailureWithMetrics records failed request
func RecordFailureWithMetrics(metrics core.MetricsCollector, startTime time.Time, model string, stream bool) {
	metrics.RecordRequest(false, time.Since(startTime).Milliseconds(), model, stream)
}
