// ABOUTME: Monitoring HTTP server
// ABOUTME: Serves metrics, health, status and the live position feed
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hspbridge/hspbridge/pkg/hsp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the /status response
type Status struct {
	State   string    `json:"state"`
	Pending int       `json:"pending"`
	Stats   hsp.Stats `json:"stats"`
}

// Server represents the monitoring HTTP server
type Server struct {
	addr   string
	source Source
	feed   *Feed
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a monitoring server on addr
func NewServer(addr string, source Source, feed *Feed, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:   addr,
		source: source,
		feed:   feed,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.Handle("/metrics", promhttp.HandlerFor(newRegistry(source), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	s.mux.HandleFunc("/status", s.handleStatus)
	if feed != nil {
		s.mux.Handle("/feed", feed)
	}

	return s
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := Status{
		State:   s.source.State().String(),
		Pending: s.source.Pending(),
		Stats:   s.source.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("Failed to write status", "error", err)
	}
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		// Feed subscribers stop with the server
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Monitor server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server failed: %w", err)
	}
	return nil
}
