package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olohmann/financial-datasets-mcp-server/internal/cache"
	"github.com/olohmann/financial-datasets-mcp-server/internal/upstream"
)

// registerRoutes mounts the health, cache admin and metrics endpoints.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /cache/status", s.handleCacheStatus)
	mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
	mux.HandleFunc("POST /cache/cleanup", s.handleCacheCleanup)
	mux.Handle("GET /metrics", s.metrics.Handler())
}

type healthResponse struct {
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	Uptime     string          `json:"uptime"`
	APIStatus  upstream.Health `json:"api_status"`
	CacheStats cache.Stats     `json:"cache_stats"`
	Version    string          `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "OK",
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		APIStatus:  s.client.Probe(r.Context()),
		CacheStats: s.cache.Stats(r.Context()),
		Version:    Version,
	})
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache_enabled":     true,
		"cache_backend":     s.cfg.CacheBackend,
		"cache_ttl_minutes": int(s.cache.TTL().Minutes()),
		"statistics":        s.cache.Stats(r.Context()),
		"timestamp":         time.Now().UTC(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	s.logger.Info("cache cleared via admin API")

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Cache cleared successfully",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.cache.PurgeExpired(r.Context())
	s.logger.Info("cache cleanup completed", "removed", removed)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":                 "Cache cleanup completed",
		"expired_entries_removed": removed,
		"timestamp":               time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
