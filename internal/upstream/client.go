// Package upstream provides the authenticated client for the financial
// datasets API.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout reports that a request exceeded the configured timeout.
var ErrTimeout = errors.New("upstream request timed out")

// StatusError reports a non-success HTTP status from the upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Code, e.Body)
}

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 2048

// Observer receives the outcome of each upstream request.
type Observer interface {
	ObserveRequest(status string, duration time.Duration)
}

// Config configures the upstream client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.financialdatasets.ai.
	BaseURL string
	// APIKey is sent as the X-API-KEY header on every request.
	APIKey string
	// Timeout bounds each data request (default 30s).
	Timeout time.Duration
	// HealthTimeout bounds the health probe (default 5s).
	HealthTimeout time.Duration
	// Logger for request events; defaults to slog.Default.
	Logger *slog.Logger
	// Observer receives per-request metrics (optional).
	Observer Observer
}

// Client issues authenticated GET requests against the upstream API. It never
// retries; retry policy, if any, belongs to callers.
type Client struct {
	baseURL       string
	apiKey        string
	http          *http.Client
	healthTimeout time.Duration
	logger        *slog.Logger
	observer      Observer
}

// New creates an upstream client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		healthTimeout: cfg.HealthTimeout,
		logger:        cfg.Logger,
		observer:      cfg.Observer,
	}
}

// Fetch performs a GET against path with the given query and returns the raw
// JSON body. A timeout yields an error wrapping ErrTimeout, a non-2xx status
// a *StatusError; in both cases no payload is returned.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	c.logger.Debug("upstream request", "url", u)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, u)
		}
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.observe(fmt.Sprintf("%d", resp.StatusCode), start)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe("error", start)
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, u)
		}
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("malformed upstream payload: %w", err)
	}

	c.observe(fmt.Sprintf("%d", resp.StatusCode), start)
	c.logger.Debug("upstream response", "url", u, "bytes", len(raw))
	return raw, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(status, time.Since(start))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
