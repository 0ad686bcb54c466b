package main

import (
	"context"
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/court-docket-router/internal/adapters/mcp"
	"github.com/kirillkom/court-docket-router/internal/bootstrap"
	"github.com/kirillkom/court-docket-router/internal/config"
	"github.com/kirillkom/court-docket-router/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.New(os.Stderr, "docket-mcp", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	filing, err := bootstrap.NewFiling(context.Background(), cfg)
	if err != nil {
		logger.Error("bootstrap_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server, err := mcpadapter.NewServer(version, filing.Pipeline, filing.Classifier, filing.Dates)
	if err != nil {
		logger.Error("mcp_server_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := server.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
