// Package httpapi serves the gateway's own operational endpoints —
// /healthz and /metrics — separate from any http_server connector a
// bridge config might define. Routed with go-chi/chi, the same router
// the httpconn driver and gray-logic-core's api.Server use.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iotgw/iotgwd/internal/logger"
)

// Server exposes /healthz and, when Prometheus metrics are enabled,
// /metrics on gateway.metrics_port.
type Server struct {
	bind       string
	server     *http.Server
	lastTickNs atomic.Int64
}

// New builds a Server bound to addr (host:port). withMetrics controls
// whether /metrics is registered; it is false when the gateway is
// configured with metrics_port 0 and the null collector is active.
func New(addr string, withMetrics bool) *Server {
	s := &Server{bind: addr}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	if withMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.server = &http.Server{Handler: r}
	return s
}

// MarkTick records that the supervisor's run loop has made forward
// progress; healthz reports unhealthy once too much time has passed
// since the last tick.
func (s *Server) MarkTick(t time.Time) {
	s.lastTickNs.Store(t.UnixNano())
}

const healthzStaleAfter = 30 * time.Second

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	last := s.lastTickNs.Load()
	if last == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "starting"})
		return
	}
	age := time.Since(time.Unix(0, last))
	if age > healthzStaleAfter {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "stale", "since": age.String()})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start binds the listener and serves in the background. Returns once
// the listener is bound; serve errors after that are logged, not
// returned, mirroring net/http.Server's usual usage.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("httpapi: serve: %v", err)
		}
	}()
	logger.Info("httpapi: listening on %s", s.bind)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
