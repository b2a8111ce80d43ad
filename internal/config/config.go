package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"

	"gopkg.in/yaml.v3"
)

// ServerConfig server configuration
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string

	Engine             string
	OllamaURL          string
	OllamaModel        string
	SupportedLanguages []string

	// StreamSamplingDefaults applies the 0.7/0.95 sampling defaults on the
	// streaming path as well, so absent values route the same on both paths.
	StreamSamplingDefaults bool
	UsageEstimator         string
	StatusCacheTTL         time.Duration

	RedisURL        string
	StatsFile       string
	CORSAllowOrigin string
	ServerVersion   string

	HTTPClientSettings HTTPClientSettings

	Capability core.GenerationCapability
	Storage    core.StorageInterface
	Logger     core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	RequestTimeout      time.Duration
	ProbeTimeout        time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		RequestTimeout:      core.HTTPRequestTimeout,
		ProbeTimeout:        core.HTTPProbeTimeout,
	}
}

// DefaultServerConfig returns the configuration used when nothing is set.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:               core.DefaultHost,
		Port:               core.DefaultPort,
		GinMode:            core.DefaultGinMode,
		Engine:             core.DefaultEngine,
		OllamaURL:          core.DefaultOllamaURL,
		OllamaModel:        core.DefaultOllamaModel,
		SupportedLanguages: []string{"en"},
		UsageEstimator:     core.DefaultUsageEstimator,
		StatusCacheTTL:     core.DefaultStatusCacheTTL,
		StatsFile:          core.StatsFilePath,
		CORSAllowOrigin:    core.DefaultCORSAllowOrigin,
		ServerVersion:      core.DefaultServerVersion,
		HTTPClientSettings: DefaultHTTPClientSettings(),
	}
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	cfg.Host = util.GetEnvWithDefault("HOST", cfg.Host)
	cfg.GinMode = util.GetEnvWithDefault("GIN_MODE", cfg.GinMode)
	cfg.Engine = util.GetEnvWithDefault("ENGINE", cfg.Engine)
	cfg.OllamaURL = util.GetEnvWithDefault("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = util.GetEnvWithDefault("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.UsageEstimator = util.GetEnvWithDefault("USAGE_ESTIMATOR", cfg.UsageEstimator)
	cfg.RedisURL = util.GetEnvWithDefault("REDIS_URL", cfg.RedisURL)
	cfg.StatsFile = util.GetEnvWithDefault("STATS_FILE", cfg.StatsFile)
	cfg.CORSAllowOrigin = util.GetEnvWithDefault("CORS_ALLOW_ORIGIN", cfg.CORSAllowOrigin)
	cfg.StreamSamplingDefaults = util.GetEnvBool("STREAM_SAMPLING_DEFAULTS", cfg.StreamSamplingDefaults)

	if langs := util.ParseEnvList(os.Getenv("SUPPORTED_LANGUAGES")); len(langs) > 0 {
		cfg.SupportedLanguages = langs
	}

	port, err := util.GetEnvInt("PORT", cfg.Port)
	if err != nil {
		return cfg, err
	}
	cfg.Port = port

	ttl, err := util.GetEnvDuration("STATUS_CACHE_TTL", cfg.StatusCacheTTL)
	if err != nil {
		return cfg, err
	}
	cfg.StatusCacheTTL = ttl

	if cfg.RedisURL != "" {
		logger.Info("Redis stats storage configured")
	}
	logger.Debug("Loaded config from environment: engine=%s addr=%s", cfg.Engine, cfg.Addr())

	return cfg, nil
}

// FileConfig is the optional YAML overlay. Unset fields keep the
// environment value.
type FileConfig struct {
	Server struct {
		Host    *string `yaml:"host"`
		Port    *int    `yaml:"port"`
		GinMode *string `yaml:"gin_mode"`
	} `yaml:"server"`
	Engine struct {
		Name               *string  `yaml:"name"`
		OllamaURL          *string  `yaml:"ollama_url"`
		OllamaModel        *string  `yaml:"ollama_model"`
		SupportedLanguages []string `yaml:"supported_languages"`
	} `yaml:"engine"`
	Gateway struct {
		StreamSamplingDefaults *bool   `yaml:"stream_sampling_defaults"`
		UsageEstimator         *string `yaml:"usage_estimator"`
		StatusCacheTTL         *string `yaml:"status_cache_ttl"`
		CORSAllowOrigin        *string `yaml:"cors_allow_origin"`
	} `yaml:"gateway"`
	Stats struct {
		RedisURL *string `yaml:"redis_url"`
		File     *string `yaml:"file"`
	} `yaml:"stats"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (FileConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}
	return fc, nil
}

// Apply overlays the set fields of fc onto cfg.
func (fc FileConfig) Apply(cfg *ServerConfig) error {
	setString(&cfg.Host, fc.Server.Host)
	setString(&cfg.GinMode, fc.Server.GinMode)
	if fc.Server.Port != nil {
		cfg.Port = *fc.Server.Port
	}

	setString(&cfg.Engine, fc.Engine.Name)
	setString(&cfg.OllamaURL, fc.Engine.OllamaURL)
	setString(&cfg.OllamaModel, fc.Engine.OllamaModel)
	if len(fc.Engine.SupportedLanguages) > 0 {
		cfg.SupportedLanguages = fc.Engine.SupportedLanguages
	}

	if fc.Gateway.StreamSamplingDefaults != nil {
		cfg.StreamSamplingDefaults = *fc.Gateway.StreamSamplingDefaults
	}
	setString(&cfg.UsageEstimator, fc.Gateway.UsageEstimator)
	setString(&cfg.CORSAllowOrigin, fc.Gateway.CORSAllowOrigin)
	if fc.Gateway.StatusCacheTTL != nil {
		ttl, err := time.ParseDuration(*fc.Gateway.StatusCacheTTL)
		if err != nil {
			return fmt.Errorf("gateway.status_cache_ttl: %w", err)
		}
		cfg.StatusCacheTTL = ttl
	}

	setString(&cfg.RedisURL, fc.Stats.RedisURL)
	setString(&cfg.StatsFile, fc.Stats.File)
	return nil
}

// Load builds the configuration from the environment and, when path is
// non-empty, the YAML file at path. Overrides run last, before validation.
func Load(path string, logger core.Logger, overrides ...func(*ServerConfig)) (ServerConfig, error) {
	cfg, err := LoadServerConfigFromEnv(logger)
	if err != nil {
		return cfg, err
	}

	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := fc.Apply(&cfg); err != nil {
			return cfg, err
		}
		logger.Info("Loaded config file %s", path)
	}

	for _, override := range overrides {
		override(&cfg)
	}
	return cfg, cfg.Validate()
}

// Validate performs sanity checks on the configuration.
func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be a valid TCP port, got %d", c.Port)
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host must not be empty")
	}

	switch c.Engine {
	case core.EngineOllama:
		if strings.TrimSpace(c.OllamaURL) == "" {
			return fmt.Errorf("ollama engine requires an ollama url")
		}
		if strings.TrimSpace(c.OllamaModel) == "" {
			return fmt.Errorf("ollama engine requires a model name")
		}
	case core.EngineFake:
	default:
		return fmt.Errorf("engine %q must be one of %q or %q", c.Engine, core.EngineOllama, core.EngineFake)
	}

	switch c.UsageEstimator {
	case core.UsageEstimatorHeuristic, core.UsageEstimatorTiktoken:
	default:
		return fmt.Errorf("usage estimator %q must be one of %q or %q", c.UsageEstimator, core.UsageEstimatorHeuristic, core.UsageEstimatorTiktoken)
	}

	if c.StatusCacheTTL < 0 {
		return fmt.Errorf("status cache ttl must not be negative, got %s", c.StatusCacheTTL)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
