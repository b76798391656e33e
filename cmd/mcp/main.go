package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/ionmode-enricher/internal/adapters/mcp"
	"github.com/kirillkom/ionmode-enricher/internal/bootstrap"
	"github.com/kirillkom/ionmode-enricher/internal/config"
	"github.com/kirillkom/ionmode-enricher/internal/observability/logging"
)

const serviceName = "ionmode-mcp"

func main() {
	cfg := config.Load()
	// stdout carries the protocol stream.
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	core, err := bootstrap.NewCore(cfg, bootstrap.Options{Service: serviceName, Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	srv := mcpadapter.New(core.Deriver, cfg.AdductsSource, logger).MCPServer()
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
