// Package engine holds the generation capability adapters the gateway can
// front: a local Ollama server and a deterministic in-process fake.
package engine

import (
	"fmt"
	"net/http"

	"github.com/tanu360/apple-intelligence-api/internal/config"
	"github.com/tanu360/apple-intelligence-api/internal/core"
)

// New builds the capability named by cfg.Engine.
func New(cfg config.ServerConfig, logger core.Logger) (core.GenerationCapability, error) {
	switch cfg.Engine {
	case core.EngineOllama:
		return NewOllama(OllamaConfig{
			BaseURL:      cfg.OllamaURL,
			Model:        cfg.OllamaModel,
			Languages:    cfg.SupportedLanguages,
			HTTPClient:   NewHTTPClient(cfg.HTTPClientSettings),
			ProbeTimeout: cfg.HTTPClientSettings.ProbeTimeout,
			Logger:       logger,
		}), nil
	case core.EngineFake:
		logger.Warn("Using the fake engine; responses are canned")
		return NewFake(WithLanguages(cfg.SupportedLanguages...)), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// NewHTTPClient creates the pooled client used to reach the engine.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}
