package http

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"despeses/internal/cache"
	"despeses/internal/log"
	"despeses/internal/middleware/ratelimit"
	"despeses/internal/middleware/security"
	"despeses/internal/middleware/trace"
)

// handleHealth reports liveness. It always answers ok while the process
// accepts connections.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports readiness: the database answers a ping and the
// dataset root exists. Not ready answers 503 with the failing checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	checks := map[string]string{}
	ready := true

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if info, err := os.Stat(s.cfg.DataRoot); err != nil || !info.IsDir() {
		checks["data_root"] = "missing"
		ready = false
	} else {
		checks["data_root"] = "ok"
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			"checks", checks,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

type metricsResponse struct {
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Requests       trace.Metrics     `json:"requests"`
	RateLimit      ratelimit.Metrics `json:"rate_limit"`
	Security       security.Metrics  `json:"security"`
	DashboardCache cache.Stats       `json:"dashboard_cache"`
	Sessions       cache.Stats       `json:"sessions"`
}

// handleMetrics exposes the in-process counters as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	resp := metricsResponse{
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		Requests:       s.tracer.Metrics(),
		RateLimit:      s.limiter.Metrics(),
		Security:       s.detector.Metrics(),
		DashboardCache: s.dashCache.Stats(),
		Sessions:       s.sessions.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
