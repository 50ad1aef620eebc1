// Package config provides configuration loading for the MCP server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Transport selects how the MCP server is exposed.
type Transport string

// Supported transports.
const (
	TransportStdio          Transport = "stdio"
	TransportSSE            Transport = "sse"
	TransportStreamableHTTP Transport = "streamable-http"
)

// Backend selects the cache store implementation.
type Backend string

// Supported cache backends.
const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config holds the complete server configuration. It is constructed once at
// startup by Load and passed by reference; it is never re-read afterwards.
type Config struct {
	// Upstream API
	APIKey             string
	BaseURL            string
	RequestTimeout     time.Duration
	HealthCheckTimeout time.Duration

	// Serving
	LogLevel  slog.Level
	Transport Transport
	Host      string
	Port      int

	// Cache
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
	CacheMaxEntries      int
	CacheSingleflight    bool
	CacheBackend         Backend

	// Redis backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load builds the configuration from the environment. If envFile names an
// existing file it is loaded first without overriding variables already set
// in the environment; a missing file is not an error (matching dotenv
// semantics).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		APIKey:               os.Getenv("FINANCIAL_DATASETS_API_KEY"),
		BaseURL:              envString("FINANCIAL_DATASETS_API_BASE", "https://api.financialdatasets.ai"),
		RequestTimeout:       envSeconds("API_TIMEOUT", 30*time.Second),
		HealthCheckTimeout:   envSeconds("HEALTH_CHECK_TIMEOUT", 5*time.Second),
		LogLevel:             parseLogLevel(envString("LOG_LEVEL", "info")),
		Transport:            Transport(envString("MCP_TRANSPORT", string(TransportStdio))),
		Host:                 envString("MCP_HOST", "127.0.0.1"),
		Port:                 envInt("MCP_PORT", 8000),
		CacheTTL:             time.Duration(envInt("CACHE_TTL_MINUTES", 10)) * time.Minute,
		CacheCleanupInterval: envDuration("CACHE_CLEANUP_INTERVAL", 0),
		CacheMaxEntries:      envInt("CACHE_MAX_ENTRIES", 0),
		CacheSingleflight:    envBool("CACHE_SINGLEFLIGHT", false),
		CacheBackend:         Backend(envString("CACHE_BACKEND", string(BackendMemory))),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envInt("REDIS_DB", 0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks configuration validity. Failures here are fatal: the
// process must not start serving tools with broken configuration.
func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("FINANCIAL_DATASETS_API_KEY is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("FINANCIAL_DATASETS_API_BASE must not be empty")
	}

	switch c.Transport {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unknown transport %q (expected stdio, sse or streamable-http)", c.Transport)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must be positive")
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (expected memory or redis)", c.CacheBackend)
	}

	return nil
}

// Address returns the host:port the HTTP transports bind to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// envSeconds parses a float number of seconds, e.g. API_TIMEOUT=30 or 2.5.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return time.Duration(f * float64(time.Second))
}

// envDuration parses a Go duration string, e.g. CACHE_CLEANUP_INTERVAL=1m.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
