package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

func emptyStats() *core.RequestStats {
	return &core.RequestStats{RequestHistory: []core.RequestRecord{}}
}

// FileStorage persists stats as a JSON document on disk
type FileStorage struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStorage creates a FileStorage writing to filePath
func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.StatsFilePath
	}
	return &FileStorage{filePath: filePath}
}

// SaveStats writes stats atomically through a temp file and rename
func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, core.FilePermissionReadWrite); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return os.Rename(tmp, fs.filePath)
}

// LoadStats reads stats; a missing file yields empty stats
func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	fs.mu.Lock()
	data, err := os.ReadFile(filepath.Clean(fs.filePath))
	fs.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return emptyStats(), nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := util.UnmarshalJSON(data, &stats); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fs.filePath, err)
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage persists stats under a single Redis key
type RedisStorage struct {
	client *redis.Client
	key    string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	Key string
}

// NewRedisStorage connects to Redis and verifies the connection with a ping
func NewRedisStorage(ctx context.Context, config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	key := config.Key
	if key == "" {
		key = core.StatsRedisKey
	}

	return &RedisStorage{client: client, key: key}, nil
}

// SaveStats stores stats as JSON
func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return rs.client.Set(ctx, rs.key, data, 0).Err()
}

// LoadStats reads stats; a missing key yields empty stats
func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := rs.client.Get(ctx, rs.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyStats(), nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := util.UnmarshalJSON(val, &stats); err != nil {
		return nil, err
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

// Close closes the Redis client
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// MemoryStorage keeps stats in process. Used when persistence is disabled.
type MemoryStorage struct {
	mu    sync.Mutex
	stats *core.RequestStats
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// SaveStats keeps a copy of stats
func (ms *MemoryStorage) SaveStats(stats *core.RequestStats) error {
	cp := *stats
	cp.RequestHistory = append([]core.RequestRecord(nil), stats.RequestHistory...)
	ms.mu.Lock()
	ms.stats = &cp
	ms.mu.Unlock()
	return nil
}

// LoadStats returns the last saved stats or empty stats
func (ms *MemoryStorage) LoadStats() (*core.RequestStats, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.stats == nil {
		return emptyStats(), nil
	}
	cp := *ms.stats
	cp.RequestHistory = append([]core.RequestRecord{}, ms.stats.RequestHistory...)
	return &cp, nil
}

// Close is a no-op for memory storage
func (ms *MemoryStorage) Close() error {
	return nil
}

// InitStorage picks Redis when redisURL is set, falling back to the stats
// file when Redis is unreachable. An empty statsPath keeps stats in memory.
func InitStorage(ctx context.Context, redisURL, statsPath string, logger core.Logger) core.StorageInterface {
	if redisURL != "" {
		redisStorage, err := NewRedisStorage(ctx, RedisStorageConfig{
			URL: redisURL,
			Key: core.StatsRedisKey,
		})
		if err == nil {
			logger.Info("Using Redis storage")
			return redisStorage
		}
		logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
	}

	if statsPath == "" {
		logger.Info("Using in-memory stats storage")
		return NewMemoryStorage()
	}

	logger.Info("Using file storage at %s", statsPath)
	return NewFileStorage(statsPath)
}
