package validate

import (
	"bytes"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"
)

// Error codes attached to InvalidRequest errors.
const (
	CodeInvalidJSON      = "invalid_json"
	CodeEmptyMessages    = "empty_messages"
	CodeInvalidRole      = "invalid_role"
	CodeInvalidMaxTokens = "invalid_max_tokens"
)

var allowedRoles = map[string]bool{
	core.RoleUser:      true,
	core.RoleAssistant: true,
	core.RoleSystem:    true,
}

// DecodeChatRequest parses a chat completion request body and validates it.
func DecodeChatRequest(body []byte) (*core.ChatCompletionRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, invalid(CodeInvalidJSON, "request body is empty")
	}

	var req core.ChatCompletionRequest
	if err := util.UnmarshalJSON(body, &req); err != nil {
		apiErr := invalid(CodeInvalidJSON, "invalid request body")
		apiErr.Cause = err
		return nil, apiErr
	}

	if err := ValidateChatRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateChatRequest checks the parts of a request the gateway relies on.
func ValidateChatRequest(req *core.ChatCompletionRequest) error {
	if len(req.Messages) == 0 {
		return invalid(CodeEmptyMessages, "messages must be a non-empty array")
	}

	for i, msg := range req.Messages {
		if !allowedRoles[msg.Role] {
			return invalidf(CodeInvalidRole, "messages[%d].role must be one of user, assistant, system; got %q", i, msg.Role)
		}
	}

	if req.MaxTokens != nil && *req.MaxTokens < 1 {
		return invalidf(CodeInvalidMaxTokens, "max_tokens must be at least 1; got %d", *req.MaxTokens)
	}

	return nil
}

// ApplySamplingDefaults fills temperature and top_p when the client left them out.
func ApplySamplingDefaults(req *core.ChatCompletionRequest) {
	if req.Temperature == nil {
		req.Temperature = util.Float64Ptr(core.DefaultTemperature)
	}
	if req.TopP == nil {
		req.TopP = util.Float64Ptr(core.DefaultTopP)
	}
}

func invalid(code, message string) *core.APIError {
	apiErr := core.NewInvalidRequest(message)
	apiErr.Code = code
	return apiErr
}

func invalidf(code, format string, args ...any) *core.APIError {
	apiErr := core.NewInvalidRequestf(format, args...)
	apiErr.Code = code
	return apiErr
}
