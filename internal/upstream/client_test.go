package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestFetchSendsAPIKeyAndQuery(t *testing.T) {
	var gotKey, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"prices":[{"close":123.4}]}`))
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, APIKey: "secret", Timeout: time.Second})

	raw, err := c.Fetch(context.Background(), "/prices/", url.Values{"ticker": {"AAPL"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("expected X-API-KEY header, got %q", gotKey)
	}
	if gotQuery != "ticker=AAPL" {
		t.Errorf("unexpected query: %q", gotQuery)
	}
	if string(raw) != `{"prices":[{"close":123.4}]}` {
		t.Errorf("unexpected payload: %s", raw)
	}
}

func TestFetchStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ticker not found", http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, Timeout: time.Second})

	_, err := c.Fetch(context.Background(), "/prices/", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", statusErr.Code)
	}
	if statusErr.Body != "ticker not found" {
		t.Errorf("unexpected error body: %q", statusErr.Body)
	}
}

func TestFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, Timeout: 50 * time.Millisecond})

	_, err := c.Fetch(context.Background(), "/prices/", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := c.Fetch(ctx, "/prices/", nil); err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices": [`))
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, Timeout: time.Second})

	if _, err := c.Fetch(context.Background(), "/prices/", nil); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) ObserveRequest(status string, _ time.Duration) {
	o.statuses = append(o.statuses, status)
}

func TestFetchObserver(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	obs := &recordingObserver{}
	c := New(Config{BaseURL: ts.URL, Timeout: time.Second, Observer: obs})

	if _, err := c.Fetch(context.Background(), "/", nil); err != nil {
		t.Fatal(err)
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != "200" {
		t.Errorf("unexpected observations: %v", obs.statuses)
	}
}
