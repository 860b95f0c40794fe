package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"restobook/internal/core"
	applog "restobook/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks that the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]interface{}{"templates": "ok"}

	if s.health == nil {
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.health.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.results != nil {
		checks["cache"] = map[string]interface{}{"entries": s.results.Size(), "status": "ok"}
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheEntries := 0
	if s.results != nil {
		cacheEntries = s.results.Size()
	}

	metrics := []struct {
		name, kind, help string
		value            float64
	}{
		{"http_requests_total", "counter", "Total number of HTTP requests", float64(traceMetrics.TotalRequests)},
		{"http_server_errors_total", "counter", "Responses with a 5xx status", float64(traceMetrics.ServerErrors)},
		{"http_response_time_avg_microseconds", "gauge", "Mean response time", float64(traceMetrics.AverageResponseTime)},
		{"records_created_total", "counter", "Purchases and expenses created", float64(s.appMetrics.recordsCreated.Load())},
		{"sales_registrations_total", "counter", "Sales reports imported", float64(s.appMetrics.salesRegistrations.Load())},
		{"query_cache_hits_total", "counter", "Query cache hits", float64(s.appMetrics.cacheHits.Load())},
		{"query_cache_misses_total", "counter", "Query cache misses", float64(s.appMetrics.cacheMisses.Load())},
		{"query_cache_entries", "gauge", "Current query cache entries", float64(cacheEntries)},
		{"rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", float64(rateLimitMetrics.TotalHits)},
		{"active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount)},
		{"suspicious_requests_total", "counter", "Suspicious requests detected", float64(securityMetrics.SuspiciousRequests)},
		{"uptime_seconds", "gauge", "Application uptime in seconds", time.Since(s.appMetrics.uptime).Seconds()},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %.0f\n\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}

type indexData struct {
	Today      string
	Categories []core.Category
	Units      []core.Unit
	Entities   []core.Entity
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	data := indexData{
		Today:      s.now().Format(core.DateLayout),
		Categories: core.Categories(),
		Units:      core.Units(),
		Entities:   []core.Entity{core.EntityRestaurant, core.EntityDelivery},
	}
	s.render(w, r, http.StatusOK, "index.html", data)
}

// render executes a template into a buffer so a failure can still produce
// a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Template execution failed",
			err, applog.ComponentTemplate, applog.OpRender, applog.LogFields{"template": name})
		InternalServerError("Could not render the page").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		InternalServerError("Could not encode the response").Write(w)
		return
	}
	NewHTMXResponse().
		Status(status).
		Header("Content-Type", "application/json").
		Body(append(data, '\n')).
		Write(w)
}
