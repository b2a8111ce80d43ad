// Command apple-intelligence-api serves an OpenAI-compatible chat completions
// gateway in front of an on-device generation engine.
//
// Usage:
//
//	apple-intelligence-api serve
//	apple-intelligence-api serve --config gateway.yaml --port 11435
//	apple-intelligence-api status --url http://127.0.0.1:11435
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/config"
	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/engine"
	logpkg "github.com/tanu360/apple-intelligence-api/internal/log"
	"github.com/tanu360/apple-intelligence-api/internal/server"
	"github.com/tanu360/apple-intelligence-api/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	configPath string
	host       string
	port       int
	engineName string
	model      string
	debug      bool
}

func main() {
	dotenvErr := godotenv.Load()

	root := &cobra.Command{
		Use:           "apple-intelligence-api",
		Short:         "OpenAI-compatible gateway for on-device foundation models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags serveFlags
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, dotenvErr)
		},
	}
	f := serve.Flags()
	f.StringVarP(&flags.configPath, "config", "c", os.Getenv("CONFIG_FILE"), "YAML config file")
	f.StringVar(&flags.host, "host", core.DefaultHost, "bind address")
	f.IntVarP(&flags.port, "port", "p", core.DefaultPort, "HTTP port")
	f.StringVar(&flags.engineName, "engine", core.DefaultEngine, "generation engine (ollama or fake)")
	f.StringVarP(&flags.model, "model", "m", "", "engine model name")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	var statusURL string
	status := &cobra.Command{
		Use:   "status",
		Short: "Query a running gateway for model availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), statusURL)
		},
	}
	status.Flags().StringVar(&statusURL, "url", fmt.Sprintf("http://%s:%d", core.DefaultHost, core.DefaultPort), "gateway base URL")

	root.AddCommand(serve, status)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, flags serveFlags, dotenvErr error) error {
	logger := logpkg.CreateLogger(flags.debug)
	defer func() {
		if appLog, ok := logger.(*logpkg.AppLogger); ok {
			_ = appLog.Close()
		}
	}()

	if dotenvErr != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	changed := cmd.Flags().Changed
	cfg, err := config.Load(flags.configPath, logger, func(cfg *config.ServerConfig) {
		if changed("host") {
			cfg.Host = flags.host
		}
		if changed("port") {
			cfg.Port = flags.port
		}
		if changed("engine") {
			cfg.Engine = flags.engineName
		}
		if changed("model") {
			cfg.OllamaModel = flags.model
		}
		if flags.debug {
			cfg.GinMode = "debug"
		}
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	capability, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create %s engine: %w", cfg.Engine, err)
	}

	storageInstance := storage.InitStorage(cmd.Context(), cfg.RedisURL, cfg.StatsFile, logger)
	defer func() { _ = storageInstance.Close() }()

	cfg.Capability = capability
	cfg.Storage = storageInstance
	cfg.Logger = logger

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	logger.Info("Starting gateway on %s with engine %s", cfg.Addr(), cfg.Engine)
	return srv.Run()
}

func runStatus(ctx context.Context, out io.Writer, baseURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %s: %s", resp.Status, body)
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}
