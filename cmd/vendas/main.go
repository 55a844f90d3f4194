// CLAUDE:SUMMARY Entry point of the vendas service: HTTP API + MCP over chi, optional daily schedule, one-shot mode.
// Command vendas collects yesterday's UpSeller sales by store and serves
// the history over HTTP and MCP.
//
// Usage:
//
//	vendas -config vendas.yaml        # serve the API (AUTH_TOKEN required)
//	vendas -once                      # run one collection, print the result
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/vendas/collector"
	"github.com/hazyhaar/vendas/dbopen"
)

func main() {
	configPath := flag.String("config", os.Getenv("VENDAS_CONFIG"), "path to vendas.yaml config file")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	once := flag.Bool("once", false, "run one collection, print the JSON result and exit")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := collector.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("vendas: config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("vendas: config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *once); err != nil {
		logger.Error("vendas: fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *collector.Config, once bool) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	db, err := dbopen.Open(cfg.Path(cfg.RunLogDB), dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("run log db: %w", err)
	}
	defer db.Close()

	c, err := collector.New(cfg, collector.WithRunLog(db), collector.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	if once {
		return runOnce(ctx, c)
	}
	return serve(ctx, logger, cfg, c)
}

func runOnce(ctx context.Context, c *collector.Collector) error {
	res, err := c.Run(ctx, "cli")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"status": "sucesso", "dados": res})
}

func serve(ctx context.Context, logger *slog.Logger, cfg *collector.Config, c *collector.Collector) error {
	if cfg.Token == "" {
		return errors.New("AUTH_TOKEN (or token in the config file) is required")
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "vendas", Version: "1.0.0"}, nil)
	c.RegisterMCP(mcpSrv)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(cfg.Token, mcpHandler),
		ReadHeaderTimeout: 10 * time.Second,
		// A collection holds the request for its whole run.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := c.RunDaily(ctx); err != nil {
			logger.Error("vendas: schedule", "error", err)
		}
	}()

	errc := make(chan error, 1)
	go func() {
		logger.Info("vendas: server starting", "addr", cfg.Addr, "url", cfg.URL, "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("vendas: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("vendas: shutdown", "error", err)
	}
	logger.Info("vendas: server stopped")
	return nil
}
