// Package tools maps MCP tool invocations onto upstream API requests through
// the response cache.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/olohmann/financial-datasets-mcp-server/internal/cache"
	"github.com/olohmann/financial-datasets-mcp-server/internal/upstream"
)

// Recorder receives tool invocation outcomes.
type Recorder interface {
	RecordToolCall(tool, outcome string)
}

// Toolset holds the collaborators shared by all tool handlers.
type Toolset struct {
	client   *upstream.Client
	cache    *cache.Cache
	logger   *slog.Logger
	recorder Recorder
}

// New creates a toolset. recorder may be nil.
func New(client *upstream.Client, c *cache.Cache, logger *slog.Logger, recorder Recorder) *Toolset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolset{client: client, cache: c, logger: logger, recorder: recorder}
}

// Register adds every tool to the MCP server.
func (t *Toolset) Register(s *server.MCPServer) {
	t.registerFinancials(s)
	t.registerMarkets(s)
}

// cachedCall serves a tool call through the cache: the key is derived from
// the tool name and its parameters, and a miss falls through to the upstream.
func (t *Toolset) cachedCall(ctx context.Context, tool, path string, query url.Values, field, noun string) (*mcp.CallToolResult, error) {
	key := cache.Key(tool, query)

	raw, err := t.cache.GetOrFetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return t.client.Fetch(ctx, path, query)
	})
	if err != nil {
		return t.fail(tool, err)
	}

	return t.respond(tool, raw, field, noun)
}

// directCall bypasses the cache for real-time data such as price snapshots.
func (t *Toolset) directCall(ctx context.Context, tool, path string, query url.Values, field, noun string) (*mcp.CallToolResult, error) {
	raw, err := t.client.Fetch(ctx, path, query)
	if err != nil {
		return t.fail(tool, err)
	}

	return t.respond(tool, raw, field, noun)
}

// respond extracts the named field from the upstream payload and returns it
// pretty-printed. A missing or empty field yields a plain-text notice rather
// than an error: the upstream answered, there just was no data.
func (t *Toolset) respond(tool string, raw json.RawMessage, field, noun string) (*mcp.CallToolResult, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return t.fail(tool, fmt.Errorf("unexpected upstream payload: %w", err))
	}

	value, ok := payload[field]
	if !ok || emptyJSON(value) {
		t.record(tool, "empty")
		return mcp.NewToolResultText(fmt.Sprintf("Unable to fetch %s or no %s found.", noun, noun)), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, value, "", "  "); err != nil {
		return t.fail(tool, fmt.Errorf("formatting %s: %w", noun, err))
	}

	t.record(tool, "ok")
	return mcp.NewToolResultText(buf.String()), nil
}

// fail reports a tool failure to the client as an MCP tool error.
func (t *Toolset) fail(tool string, err error) (*mcp.CallToolResult, error) {
	t.logger.Error("tool call failed", "tool", tool, "error", err)
	t.record(tool, "error")
	return mcp.NewToolResultError(err.Error()), nil
}

func (t *Toolset) record(tool, outcome string) {
	if t.recorder != nil {
		t.recorder.RecordToolCall(tool, outcome)
	}
}

// emptyJSON reports whether v is null, an empty array or an empty object.
func emptyJSON(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}
