package core

import (
	"context"
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// Cache interface
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, duration time.Duration)
	Delete(key string)
	Stop()
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordRequest(success bool, responseTime int64, model string, stream bool)
	RecordHTTPRequest(duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	GetQPS() float64
}

// GenerationCapability is the external text-generation engine the gateway
// fronts. Implementations decide their own concurrency discipline and may
// reject overlapping calls with a ServiceUnavailable APIError.
type GenerationCapability interface {
	Availability(ctx context.Context) Availability
	SupportedLanguages(ctx context.Context) []string
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
	StreamGenerate(ctx context.Context, req GenerateRequest) (FragmentStream, error)
}

// FragmentStream is a lazy, pull-based sequence of generated text.
// Next returns io.EOF once the engine has finished. The stream is bound to
// the context passed to StreamGenerate; Close must always be called.
type FragmentStream interface {
	Next() (string, error)
	Mode() DeltaMode
	Close() error
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordRequest(success bool, responseTime int64, model string, stream bool) {}
func (*NopMetrics) RecordHTTPRequest(duration time.Duration)                                  {}
func (*NopMetrics) RecordCacheHit()                                                           {}
func (*NopMetrics) RecordCacheMiss()                                                          {}
func (*NopMetrics) GetQPS() float64                                                           { return 0 }
