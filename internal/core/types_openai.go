package core

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// MessageContent is the text of a chat message. It decodes from a plain JSON
// string or from an OpenAI content-part array, keeping only text parts.
type MessageContent string

// UnmarshalJSON accepts string, content-part array and null forms.
func (mc *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := sonic.Unmarshal(data, &str); err == nil {
		*mc = MessageContent(str)
		return nil
	}

	var parts []map[string]any
	if err := sonic.Unmarshal(data, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			if partType, ok := part["type"].(string); ok && partType != ContentPartTypeText {
				continue
			}
			if text, ok := part["text"].(string); ok {
				texts = append(texts, text)
			}
		}
		*mc = MessageContent(strings.Join(texts, " "))
		return nil
	}

	return fmt.Errorf("invalid message content format")
}

// ContentPartTypeText is the only content-part type the gateway forwards.
const ContentPartTypeText = "text"

// ChatMessage represents a single message in an OpenAI chat completion request.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	Name    string         `json:"name,omitempty"`
}

// ChatCompletionRequest is the OpenAI-compatible chat completion request payload.
// Stop, N, the penalties, LogitBias and User are accepted for compatibility and
// not interpreted.
type ChatCompletionRequest struct {
	Model            string             `json:"model,omitempty"`
	Messages         []ChatMessage      `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Stop             any                `json:"stop,omitempty"`
	N                *int               `json:"n,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
}

// ChatCompletionChoice represents a single choice in an OpenAI chat completion response.
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// OpenAIUsage represents token usage statistics in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds usage info keeping total equal to prompt plus completion.
func NewUsage(promptTokens, completionTokens int) OpenAIUsage {
	return OpenAIUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// ChatCompletionResponse is the OpenAI-compatible non-streaming chat completion response.
type ChatCompletionResponse struct {
	ID                string                 `json:"id"`
	Object            string                 `json:"object"`
	Created           int64                  `json:"created"`
	Model             string                 `json:"model"`
	Choices           []ChatCompletionChoice `json:"choices"`
	Usage             OpenAIUsage            `json:"usage"`
	SystemFingerprint string                 `json:"system_fingerprint"`
}

// StreamDelta represents a streaming response delta in OpenAI format.
type StreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// StreamChoice represents a single choice in an OpenAI streaming response chunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// StreamResponse is the OpenAI-compatible streaming response chunk.
type StreamResponse struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Choices           []StreamChoice `json:"choices"`
	SystemFingerprint string         `json:"system_fingerprint,omitempty"`
}
