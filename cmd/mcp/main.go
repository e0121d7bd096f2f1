package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/dmarchuk/rag-document-assistant/internal/adapters/mcp"
	"github.com/dmarchuk/rag-document-assistant/internal/bootstrap"
	"github.com/dmarchuk/rag-document-assistant/internal/config"
	"github.com/dmarchuk/rag-document-assistant/internal/observability/logging"
)

// Stdout carries the MCP protocol; logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "rag-mcp", cfg.LogLevel)
	slog.SetDefault(logger.With("transport", "stdio"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcpadapter.NewServer(app.QueryUC, app.CatalogUC)
	if err != nil {
		slog.Error("mcp_server_init_failed", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
