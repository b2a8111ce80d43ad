package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() *core.RequestStats {
	return &core.RequestStats{
		TotalRequests:      2,
		SuccessfulRequests: 1,
		FailedRequests:     1,
		StreamRequests:     1,
		TotalResponseTime:  300,
		LastRequestTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		RequestHistory: []core.RequestRecord{
			{Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Success: true, ResponseTime: 100, Model: "apple-fm-base"},
			{Timestamp: time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC), Success: false, ResponseTime: 200, Model: "apple-fm-creative", Stream: true},
		},
	}
}

func TestFileStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	fs := NewFileStorage(path)

	require.NoError(t, fs.SaveStats(sampleStats()))

	loaded, err := fs.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.TotalRequests)
	assert.Equal(t, int64(1), loaded.StreamRequests)
	require.Len(t, loaded.RequestHistory, 2)
	assert.Equal(t, "apple-fm-creative", loaded.RequestHistory[1].Model)
	assert.True(t, loaded.RequestHistory[1].Stream)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
	assert.NoError(t, fs.Close())
}

func TestFileStorage_MissingFile(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "absent.json"))

	stats, err := fs.LoadStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)
	assert.NotNil(t, stats.RequestHistory)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), core.FilePermissionReadWrite))

	_, err := NewFileStorage(path).LoadStats()
	assert.Error(t, err)
}

func TestMemoryStorage_CopiesHistory(t *testing.T) {
	ms := NewMemoryStorage()

	empty, err := ms.LoadStats()
	require.NoError(t, err)
	assert.Empty(t, empty.RequestHistory)

	stats := sampleStats()
	require.NoError(t, ms.SaveStats(stats))
	stats.RequestHistory[0].Model = "mutated"

	loaded, err := ms.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, "apple-fm-base", loaded.RequestHistory[0].Model)
}

func TestNewRedisStorage_Errors(t *testing.T) {
	_, err := NewRedisStorage(context.Background(), RedisStorageConfig{URL: "not-a-url"})
	assert.Error(t, err)

	_, err = NewRedisStorage(context.Background(), RedisStorageConfig{URL: "redis://127.0.0.1:1/0"})
	assert.Error(t, err)
}

func TestInitStorage(t *testing.T) {
	logger := &core.NopLogger{}
	ctx := context.Background()

	_, isMemory := InitStorage(ctx, "", "", logger).(*MemoryStorage)
	assert.True(t, isMemory, "empty path should keep stats in memory")

	path := filepath.Join(t.TempDir(), "stats.json")
	_, isFile := InitStorage(ctx, "", path, logger).(*FileStorage)
	assert.True(t, isFile)

	_, fellBack := InitStorage(ctx, "redis://127.0.0.1:1/0", path, logger).(*FileStorage)
	assert.True(t, fellBack, "unreachable redis should fall back to file storage")
}
