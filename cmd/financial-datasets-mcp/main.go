// financial-datasets-mcp exposes the Financial Datasets API as MCP tools.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/olohmann/financial-datasets-mcp-server/internal/config"
	"github.com/olohmann/financial-datasets-mcp-server/internal/server"
)

var (
	envFile  = flag.String("env-file", ".env", "Path to optional .env file")
	logLevel = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr: stdout belongs to the stdio transport.
	level := cfg.LogLevel
	if *logLevel != "" {
		level = parseLogLevel(*logLevel)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func parseLogLevel(level string) slog.Level {
	switch level {
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
