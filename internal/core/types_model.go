package core

// ModelInfo represents a single model entry in the models list.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the OpenAI-compatible model list response.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	ModelAvailable              bool     `json:"model_available"`
	Reason                      string   `json:"reason"`
	SupportedLanguages          []string `json:"supported_languages"`
	ServerVersion               string   `json:"server_version"`
	AppleIntelligenceCompatible bool     `json:"apple_intelligence_compatible"`
}
