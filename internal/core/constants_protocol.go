package core

// Default config constants
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 11435
	DefaultGinMode         = "release"
	DefaultEngine          = EngineOllama
	DefaultOllamaURL       = "http://127.0.0.1:11434"
	DefaultOllamaModel     = "llama3.2"
	DefaultUsageEstimator  = UsageEstimatorHeuristic
	DefaultServerVersion   = "1.0.0"
	DefaultCORSAllowOrigin = "*"
	CORSMaxAge             = "86400"
)

// Engine identifiers
const (
	EngineOllama = "ollama"
	EngineFake   = "fake"
)

// Usage estimator identifiers
const (
	UsageEstimatorHeuristic = "heuristic"
	UsageEstimatorTiktoken  = "tiktoken"
)

// Content type and header constants
const (
	ContentTypeEventStream = "text/event-stream"
	ContentTypeJSON        = "application/json"
	ContentTypeNDJSON      = "application/x-ndjson"
	CacheControlNoCache    = "no-cache"
	ConnectionKeepAlive    = "keep-alive"
	HeaderContentType      = "Content-Type"
	HeaderAccept           = "Accept"
	HeaderCacheControl     = "Cache-Control"
	HeaderConnection       = "Connection"
)

// SSE stream constants
const (
	StreamChunkDoneMessage = "[DONE]"
	StreamChunkPrefix      = "data: "
	StreamFrameSeparator   = "\n\n"
)

// Role constants
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleSystem    = "system"
)
