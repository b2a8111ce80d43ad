package core

// OpenAI object type constants
const (
	ModelObjectType               = "model"
	ModelOwner                    = "apple"
	ChatCompletionObjectType      = "chat.completion"
	ChatCompletionChunkObjectType = "chat.completion.chunk"
	ModelListObjectType           = "list"
	SystemFingerprint             = "fp_apple_on_device"
)

// ID prefix constants
const (
	ResponseIDPrefix = "chatcmpl-"
)

// OpenAI finish reason constants
const (
	FinishReasonStop = "stop"
)

// Model identifiers exposed on /v1/models, one per generation profile.
const (
	ModelBase          = "apple-fm-base"
	ModelDeterministic = "apple-fm-deterministic"
	ModelCreative      = "apple-fm-creative"
)

// Sampling defaults applied by the validator on the non-streaming path.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
)
