package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 while the store is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes request, rate limit and cache counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	login := s.loginLimiter.GetMetrics()
	api := s.apiLimiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_last_response_microseconds Duration of the last request\n")
	fmt.Fprintf(w, "# TYPE http_last_response_microseconds gauge\n")
	fmt.Fprintf(w, "http_last_response_microseconds %d\n\n", traceMetrics.LastResponseTime)

	fmt.Fprintf(w, "# HELP rate_limited_total Requests rejected by a rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limited_total counter\n")
	fmt.Fprintf(w, "rate_limited_total{limiter=\"login\"} %d\n", login.Limited)
	fmt.Fprintf(w, "rate_limited_total{limiter=\"api\"} %d\n\n", api.Limited)

	fmt.Fprintf(w, "# HELP rate_limit_clients Clients tracked by a rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_clients gauge\n")
	fmt.Fprintf(w, "rate_limit_clients{limiter=\"login\"} %d\n", login.ClientCount)
	fmt.Fprintf(w, "rate_limit_clients{limiter=\"api\"} %d\n\n", api.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Requests matching a scan pattern\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	if s.aiCache != nil {
		fmt.Fprintf(w, "# HELP ai_cache_entries Cached AI responses\n")
		fmt.Fprintf(w, "# TYPE ai_cache_entries gauge\n")
		fmt.Fprintf(w, "ai_cache_entries %d\n\n", s.aiCache.Size())
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Seconds since the server started\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
