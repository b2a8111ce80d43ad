package validate

import (
	"errors"
	"testing"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"
)

func TestDecodeChatRequest_Valid(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"Hello"}],"max_tokens":200}`)
	req, err := DecodeChatRequest(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Hello" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
	if req.Model != "" {
		t.Errorf("model should be empty when omitted, got %q", req.Model)
	}
}

func TestDecodeChatRequest_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", ``, CodeInvalidJSON},
		{"malformed json", `{invalid`, CodeInvalidJSON},
		{"wrong content type", `{"messages":[{"role":"user","content":42}]}`, CodeInvalidJSON},
		{"missing messages", `{"model":"apple-fm-base"}`, CodeEmptyMessages},
		{"empty messages", `{"messages":[]}`, CodeEmptyMessages},
		{"null messages", `{"messages":null,"stream":true}`, CodeEmptyMessages},
		{"unknown role", `{"messages":[{"role":"tool","content":"x"}]}`, CodeInvalidRole},
		{"zero max tokens", `{"messages":[{"role":"user","content":"x"}],"max_tokens":0}`, CodeInvalidMaxTokens},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChatRequest([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *core.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *core.APIError, got %T", err)
			}
			if apiErr.Kind != core.ErrorKindInvalidRequest {
				t.Errorf("expected invalid request kind, got %s", apiErr.Kind)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, apiErr.Code)
			}
			if apiErr.HTTPStatus() != 400 {
				t.Errorf("expected status 400, got %d", apiErr.HTTPStatus())
			}
		})
	}
}

func TestApplySamplingDefaults(t *testing.T) {
	req := &core.ChatCompletionRequest{}
	ApplySamplingDefaults(req)
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %v", req.Temperature)
	}
	if req.TopP == nil || *req.TopP != 0.95 {
		t.Errorf("expected default top_p 0.95, got %v", req.TopP)
	}

	req = &core.ChatCompletionRequest{Temperature: util.Float64Ptr(0.3), TopP: util.Float64Ptr(0.4)}
	ApplySamplingDefaults(req)
	if *req.Temperature != 0.3 || *req.TopP != 0.4 {
		t.Error("explicit values must not be overwritten")
	}
}
