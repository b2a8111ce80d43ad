package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"
)

// OllamaConfig configures the Ollama adapter.
type OllamaConfig struct {
	BaseURL      string
	Model        string
	Languages    []string
	HTTPClient   *http.Client
	ProbeTimeout time.Duration
	Logger       core.Logger
}

// Ollama serves generation from a local Ollama server through /api/chat.
type Ollama struct {
	baseURL      string
	model        string
	languages    []string
	httpClient   *http.Client
	probeTimeout time.Duration
	logger       core.Logger
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions uses pointers so that zero sampling values, such as the
// deterministic profile's top_p of 0, are still sent.
type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaChatChunk struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

type ollamaTags struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// NewOllama creates an Ollama adapter.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = core.HTTPProbeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NopLogger{}
	}
	return &Ollama{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		languages:    append([]string(nil), cfg.Languages...),
		httpClient:   cfg.HTTPClient,
		probeTimeout: cfg.ProbeTimeout,
		logger:       cfg.Logger,
	}
}

// Availability probes /api/tags. An unreachable server is ineligible; a
// reachable server without the configured model is eligible but not ready.
func (o *Ollama) Availability(ctx context.Context) core.Availability {
	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return core.Availability{Reason: fmt.Sprintf("invalid ollama url: %v", err)}
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.logger.Debug("Ollama probe failed: %v", err)
		return core.Availability{Reason: "ollama server is not reachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Availability{Reason: fmt.Sprintf("ollama server returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		return core.Availability{Reason: "failed to read ollama model list"}
	}
	var tags ollamaTags
	if err := util.UnmarshalJSON(body, &tags); err != nil {
		return core.Availability{Reason: "failed to parse ollama model list"}
	}

	for _, m := range tags.Models {
		if modelMatches(o.model, m.Name) || modelMatches(o.model, m.Model) {
			return core.Availability{Available: true, Eligible: true}
		}
	}
	return core.Availability{
		Eligible: true,
		Reason:   fmt.Sprintf("model %s is not installed; run `ollama pull %s`", o.model, o.model),
	}
}

// modelMatches treats "llama3.2" and "llama3.2:latest" as the same model.
func modelMatches(want, have string) bool {
	if want == have {
		return true
	}
	if !strings.Contains(want, ":") {
		return have == want+":latest"
	}
	return false
}

// SupportedLanguages returns the configured language list.
func (o *Ollama) SupportedLanguages(_ context.Context) []string {
	return append([]string(nil), o.languages...)
}

// Generate runs a non-streaming chat call and reports Ollama's exact counts.
func (o *Ollama) Generate(ctx context.Context, req core.GenerateRequest) (*core.Generation, error) {
	resp, err := o.postChat(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		return nil, core.NewInternalError("failed to read generation", err)
	}

	var chunk ollamaChatChunk
	if err := util.UnmarshalJSON(body, &chunk); err != nil {
		return nil, core.NewInternalError("failed to decode generation", err)
	}
	if chunk.Error != "" {
		return nil, core.NewInternalError(chunk.Error, nil)
	}

	gen := &core.Generation{Text: chunk.Message.Content}
	if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 {
		usage := core.NewUsage(chunk.PromptEvalCount, chunk.EvalCount)
		gen.Usage = &usage
	}
	return gen, nil
}

// StreamGenerate opens a streaming chat call. The returned stream reads
// Ollama's NDJSON body one line per Next call, so nothing is read ahead of
// the consumer.
func (o *Ollama) StreamGenerate(ctx context.Context, req core.GenerateRequest) (core.FragmentStream, error) {
	resp, err := o.postChat(ctx, req, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), core.MaxScannerBufferSize)
	return &ollamaStream{ctx: ctx, body: resp.Body, scanner: scanner}, nil
}

func (o *Ollama) postChat(ctx context.Context, req core.GenerateRequest, stream bool) (*http.Response, error) {
	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Stream:   stream,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, ollamaMessage{Role: m.Role, Content: string(m.Content)})
	}
	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil {
		payload.Options = &ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		}
	}

	body, err := util.MarshalJSON(payload)
	if err != nil {
		return nil, core.NewInternalError("failed to encode generation request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInternalError("failed to build generation request", err)
	}
	httpReq.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	if stream {
		httpReq.Header.Set(core.HeaderAccept, core.ContentTypeNDJSON)
	} else {
		httpReq.Header.Set(core.HeaderAccept, core.ContentTypeJSON)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewServiceUnavailable("ollama server is not reachable", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg := readOllamaError(resp.Body)
		o.logger.Warn("Ollama returned %d: %s", resp.StatusCode, msg)
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusServiceUnavailable:
			return nil, core.NewServiceUnavailable(msg, nil)
		case http.StatusBadRequest:
			return nil, core.NewInvalidRequest(msg)
		default:
			return nil, core.NewInternalError(msg, nil)
		}
	}
	return resp, nil
}

func readOllamaError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var chunk ollamaChatChunk
	if err := util.UnmarshalJSON(body, &chunk); err == nil && chunk.Error != "" {
		return chunk.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return util.TruncateString(msg, 200, 0, "...")
	}
	return "ollama request failed"
}

type ollamaStream struct {
	ctx       context.Context
	body      io.ReadCloser
	scanner   *bufio.Scanner
	finished  bool
	closeOnce sync.Once
	closeErr  error
}

func (s *ollamaStream) Next() (string, error) {
	if s.finished {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := util.UnmarshalJSON(line, &chunk); err != nil {
			return "", core.NewInternalError("failed to decode stream chunk", err)
		}
		if chunk.Error != "" {
			return "", core.NewInternalError(chunk.Error, nil)
		}
		if chunk.Done {
			s.finished = true
			if chunk.Message.Content != "" {
				return chunk.Message.Content, nil
			}
			return "", io.EOF
		}
		if chunk.Message.Content == "" {
			continue
		}
		return chunk.Message.Content, nil
	}

	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if err := s.scanner.Err(); err != nil {
		return "", core.NewInternalError("stream read failed", err)
	}
	return "", core.NewInternalError("stream ended before completion", errors.New("missing done chunk"))
}

func (s *ollamaStream) Mode() core.DeltaMode {
	return core.DeltaIncremental
}

func (s *ollamaStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
