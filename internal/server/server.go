// Package server wires the configuration, cache, upstream client and MCP
// transports into a runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/olohmann/financial-datasets-mcp-server/internal/cache"
	"github.com/olohmann/financial-datasets-mcp-server/internal/config"
	"github.com/olohmann/financial-datasets-mcp-server/internal/metrics"
	"github.com/olohmann/financial-datasets-mcp-server/internal/tools"
	"github.com/olohmann/financial-datasets-mcp-server/internal/upstream"
)

// Name and Version identify the MCP server to clients.
const (
	Name    = "financial-datasets"
	Version = "0.2.0"
)

// Server holds the long-lived components of one process.
type Server struct {
	cfg     *config.Config
	cache   *cache.Cache
	client  *upstream.Client
	metrics *metrics.Metrics
	mcp     *server.MCPServer
	logger  *slog.Logger
	started time.Time
}

// New constructs all components from the configuration. The cache and client
// are created here once and injected; nothing holds ambient global state.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating cache store: %w", err)
	}
	c := cache.New(store, cfg.CacheTTL, cache.Options{Singleflight: cfg.CacheSingleflight})

	m := metrics.New()
	m.RegisterCacheStats(func() (uint64, uint64, int) {
		s := c.Stats(context.Background())
		return s.Hits, s.Misses, s.Entries
	})

	client := upstream.New(upstream.Config{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Timeout:       cfg.RequestTimeout,
		HealthTimeout: cfg.HealthCheckTimeout,
		Logger:        logger,
		Observer:      m,
	})

	mcpServer := server.NewMCPServer(Name, Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools.New(client, c, logger, m).Register(mcpServer)

	return &Server{
		cfg:     cfg,
		cache:   c,
		client:  client,
		metrics: m,
		mcp:     mcpServer,
		logger:  logger,
		started: time.Now(),
	}, nil
}

func newStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		return cache.NewRedis(cache.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
	default:
		return cache.NewMemory(cache.MemoryConfig{
			TTL:             cfg.CacheTTL,
			CleanupInterval: cfg.CacheCleanupInterval,
			MaxEntries:      cfg.CacheMaxEntries,
		}), nil
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer s.cache.Close()

	s.logger.Info("starting server",
		"transport", cfg.Transport,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL)

	switch cfg.Transport {
	case config.TransportStdio:
		return s.serveStdio(ctx)
	default:
		return s.serveHTTP(ctx)
	}
}

// serveStdio speaks MCP over stdin/stdout. All logging goes to stderr so the
// protocol stream stays clean.
func (s *Server) serveStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}

	s.logger.Info("stdio transport closed")
	return nil
}

// serveHTTP exposes the MCP endpoints for the selected HTTP transport plus
// the health, cache admin and metrics routes.
func (s *Server) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	switch s.cfg.Transport {
	case config.TransportSSE:
		sse := server.NewSSEServer(s.mcp,
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", sse.SSEHandler())
		mux.Handle("/message", sse.MessageHandler())
	case config.TransportStreamableHTTP:
		mux.Handle("/mcp", server.NewStreamableHTTPServer(s.mcp,
			server.WithEndpointPath("/mcp"),
		))
	}

	handler := chain(mux,
		recovery(s.logger),
		requestID(),
		requestLogging(s.logger),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http transport listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http transport: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return nil
}
