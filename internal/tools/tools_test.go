package tools

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/olohmann/financial-datasets-mcp-server/internal/cache"
	"github.com/olohmann/financial-datasets-mcp-server/internal/upstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestToolset wires a toolset against an httptest upstream and a fresh
// in-memory cache, and returns a counter of upstream requests.
func newTestToolset(t *testing.T, handler http.HandlerFunc) (*Toolset, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := upstream.New(upstream.Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
		Logger:  discardLogger(),
	})
	c := cache.New(cache.NewMemory(cache.MemoryConfig{TTL: time.Minute}), time.Minute, cache.Options{})
	t.Cleanup(func() { c.Close() })

	return New(client, c, discardLogger(), nil), &requests
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestIncomeStatementsCachesResponse(t *testing.T) {
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/financials/income-statements/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"income_statements":[{"ticker":"AAPL","revenue":394328000000}]}`))
	})

	req := callRequest("get_income_statements", map[string]any{"ticker": "AAPL"})
	handler := ts.handleStatements("get_income_statements", "/financials/income-statements/", "income_statements", "income statements")

	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, res))
	}
	if !strings.Contains(textContent(t, res), `"revenue": 394328000000`) {
		t.Errorf("expected pretty-printed statements, got: %s", textContent(t, res))
	}

	// Second identical call is served from the cache.
	if _, err := handler(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected one upstream request, got %d", n)
	}
}

func TestDifferentParamsMissCache(t *testing.T) {
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"income_statements":[{"ok":true}]}`))
	})

	handler := ts.handleStatements("get_income_statements", "/financials/income-statements/", "income_statements", "income statements")

	for _, ticker := range []string{"AAPL", "MSFT"} {
		if _, err := handler(context.Background(), callRequest("get_income_statements", map[string]any{"ticker": ticker})); err != nil {
			t.Fatal(err)
		}
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("expected two upstream requests for distinct tickers, got %d", n)
	}
}

func TestCurrentStockPriceBypassesCache(t *testing.T) {
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices/snapshot/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"snapshot":{"price":187.2}}`))
	})

	req := callRequest("get_current_stock_price", map[string]any{"ticker": "AAPL"})
	for i := 0; i < 2; i++ {
		res, err := ts.handleCurrentStockPrice(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if res.IsError {
			t.Fatalf("unexpected tool error: %s", textContent(t, res))
		}
	}

	if n := requests.Load(); n != 2 {
		t.Errorf("snapshot calls must not be cached, got %d upstream requests", n)
	}
}

func TestEmptyPayloadMessage(t *testing.T) {
	ts, _ := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"income_statements":[]}`))
	})

	handler := ts.handleStatements("get_income_statements", "/financials/income-statements/", "income_statements", "income statements")
	res, err := handler(context.Background(), callRequest("get_income_statements", map[string]any{"ticker": "ZZZZ"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatal("empty data is not a tool error")
	}
	want := "Unable to fetch income statements or no income statements found."
	if got := textContent(t, res); got != want {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestUpstreamErrorSurfacesAndIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"news":[{"title":"recovered"}]}`))
	})

	req := callRequest("get_company_news", map[string]any{"ticker": "AAPL"})

	res, err := ts.handleCompanyNews(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for upstream failure")
	}

	// The failure was not cached: the next call goes upstream and succeeds.
	fail.Store(false)
	res, err = ts.handleCompanyNews(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("expected recovery, got error: %s", textContent(t, res))
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("expected two upstream requests, got %d", n)
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	res, err := ts.handleCompanyNews(context.Background(), callRequest("get_company_news", map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for missing ticker")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("invalid arguments must not reach upstream, got %d requests", n)
	}
}

func TestSECFilingsQueryParameters(t *testing.T) {
	ts, _ := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("ticker") != "AAPL" || q.Get("limit") != "5" || q.Get("filing_type") != "10-K" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"filings":[{"type":"10-K"}]}`))
	})

	res, err := ts.handleSECFilings(context.Background(), callRequest("get_sec_filings", map[string]any{
		"ticker":      "AAPL",
		"limit":       5,
		"filing_type": "10-K",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, res))
	}
}

func TestAvailableCryptoTickers(t *testing.T) {
	ts, requests := newTestToolset(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crypto/prices/tickers" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"tickers":["BTC-USD","ETH-USD"]}`))
	})

	req := callRequest("get_available_crypto_tickers", map[string]any{})
	for i := 0; i < 2; i++ {
		res, err := ts.handleAvailableCryptoTickers(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if res.IsError {
			t.Fatalf("unexpected tool error: %s", textContent(t, res))
		}
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected ticker list to be cached, got %d upstream requests", n)
	}
}
