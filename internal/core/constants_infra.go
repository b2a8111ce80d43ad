package core

import "time"

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 100
	HTTPMaxIdleConnsPerHost   = 20
	HTTPMaxConnsPerHost       = 50
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPResponseHeaderTimeout = 2 * time.Minute
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPRequestTimeout        = time.Duration(0)
	HTTPProbeTimeout          = 3 * time.Second
)

// HTTP server constants
const (
	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerShutdownTimeout   = 30 * time.Second
	MaxRequestBodySize      = 10 << 20
)

// Cache config constants
const (
	CacheDefaultCapacity  = 64
	CacheCleanupInterval  = 1 * time.Minute
	DefaultStatusCacheTTL = 5 * time.Second
	CacheKeyVersion       = "v1"
)

// Stats and monitoring constants
const (
	StatsFilePath        = "stats.json"
	StatsRedisKey        = "apple-intelligence-api:stats"
	MinSaveInterval      = 5 * time.Second
	HistoryBufferSize    = 1000
	HistoryBatchSize     = 100
	HistoryFlushInterval = 100 * time.Millisecond
)

// Upstream stream decoding limits
const (
	MaxResponseBodySize  = 10 * 1024 * 1024
	MaxScannerBufferSize = 1024 * 1024
)

// Logging config constants
const (
	MaxDebugFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
