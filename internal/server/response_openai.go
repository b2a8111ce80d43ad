package server

import (
	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/usage"
)

// buildChatCompletionResponse wraps a finished generation in the
// single-choice response body. Exact usage from the capability wins over
// the estimate.
func buildChatCompletionResponse(id string, created int64, model string, messages []core.ChatMessage, gen *core.Generation, estimator usage.Estimator) core.ChatCompletionResponse {
	var u core.OpenAIUsage
	if gen.Usage != nil {
		u = core.NewUsage(gen.Usage.PromptTokens, gen.Usage.CompletionTokens)
	} else {
		u = usage.Compute(estimator, messages, gen.Text)
	}

	return core.ChatCompletionResponse{
		ID:      id,
		Object:  core.ChatCompletionObjectType,
		Created: created,
		Model:   model,
		Choices: []core.ChatCompletionChoice{{
			Index: 0,
			Message: core.ChatMessage{
				Role:    core.RoleAssistant,
				Content: core.MessageContent(gen.Text),
			},
			FinishReason: core.FinishReasonStop,
		}},
		Usage:             u,
		SystemFingerprint: core.SystemFingerprint,
	}
}
