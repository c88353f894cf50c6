package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukaanlabs/dukaan/internal/config"
	"github.com/dukaanlabs/dukaan/internal/log"
	"github.com/dukaanlabs/dukaan/internal/mcp"
	"github.com/dukaanlabs/dukaan/internal/pubsub"
	"github.com/dukaanlabs/dukaan/internal/relay"
	"github.com/dukaanlabs/dukaan/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay daemon",
	Long: `Run the relay as a local daemon serving the front-end API.

The daemon connects to the configured MCP tool server, exposes
POST /api/tool, GET /api/health, and an SSE activity stream on
GET /api/events. When no tool server endpoint is configured (or the
server is unreachable) canned mock responses are served instead.

Example:
  dukaan serve                      # Listen on the configured address
  dukaan serve --addr 127.0.0.1:0   # Pick a free port`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	debug := os.Getenv("DUKAAN_DEBUG") != "" || debugFlag
	if debug {
		logPath := os.Getenv("DUKAAN_LOG")
		if logPath == "" {
			logPath = config.DefaultLogFilePath()
		}

		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()

		log.Info(log.CatConfig, "dukaan relay starting", "debug", true, "logPath", logPath)
	}

	if serveAddr != "" {
		cfg.Listen = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	var mock *relay.MockResponder
	if cfg.Mock.Enabled {
		mock, err = relay.NewMockResponder(cfg.Mock.FixturesPath)
		if err != nil {
			return fmt.Errorf("loading mock fixtures: %w", err)
		}
		defer func() { _ = mock.Close() }()
	}

	// The retry hook publishes onto the handler's activity stream; the
	// handler is constructed right after the client, so the closure
	// captures the variable, not the value.
	var handler *relay.Handler

	var caller relay.ToolCaller
	var session relay.SessionReporter
	if cfg.MCP.Endpoint != "" {
		client, err := mcp.NewClient(mcp.Config{
			Endpoint:   cfg.MCP.Endpoint,
			Token:      cfg.MCP.Token,
			ClientInfo: mcp.ImplementationInfo{Name: cfg.MCP.ClientName, Version: version},
			HTTPClient: &http.Client{Timeout: cfg.MCP.Timeout},
			Tracer:     provider.Tracer(),
			OnRetry: func(tool string, kind mcp.FaultKind) {
				if handler != nil {
					handler.Broker().Publish(pubsub.RetryEvent, relay.Activity{
						Tool:      tool,
						FaultKind: kind.String(),
					})
				}
			},
		})
		if err != nil {
			return fmt.Errorf("creating MCP client: %w", err)
		}
		caller = client
		session = client.Session()
	} else {
		log.Warn(log.CatConfig, "no tool server endpoint configured, serving mock responses only")
	}

	handler = relay.NewHandler(relay.HandlerConfig{
		Caller:       caller,
		Session:      session,
		Mock:         mock,
		Tracer:       provider.Tracer(),
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
	})

	server, err := relay.NewServer(relay.ServerConfig{
		Addr:    cfg.Listen,
		Handler: handler,
	})
	if err != nil {
		return fmt.Errorf("creating relay server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("dukaan relay listening on port %d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatRelay, "error stopping relay server", err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatConfig, "error shutting down tracing", err)
	}

	fmt.Println("Relay stopped")
	return nil
}
