// Package admin exposes the operational surface of the orchestrator over
// HTTP: list and inspect modules, enable/disable/reload them, query
// on-demand health snapshots, and scrape prometheus metrics. Every endpoint
// is a thin mapping onto one core operation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/health"
	"github.com/vk/modhost/internal/lifecycle"
	"github.com/vk/modhost/internal/registry"
)

// Server is the admin HTTP server.
type Server struct {
	ctrl    *lifecycle.Controller
	reg     *registry.Registry
	monitor *health.Monitor

	httpServer *http.Server
}

// New assembles an admin server over the core components. The monitor may
// be nil when health monitoring is disabled; the health endpoint then
// reports an empty snapshot set.
func New(ctrl *lifecycle.Controller, reg *registry.Registry, monitor *health.Monitor) *Server {
	return &Server{ctrl: ctrl, reg: reg, monitor: monitor}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /modules", s.handleList(ctx))
	mux.HandleFunc("GET /modules/{name}", s.handleInfo(ctx))
	mux.HandleFunc("POST /modules/{name}/enable", s.handleEnable(ctx))
	mux.HandleFunc("POST /modules/{name}/disable", s.handleDisable(ctx))
	mux.HandleFunc("POST /modules/{name}/reload", s.handleReload(ctx))
	mux.HandleFunc("POST /modules/reload", s.handleReloadAll(ctx))
	mux.HandleFunc("GET /health", s.handleHealth(ctx))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start runs the server in a goroutine so it doesn't block.
func (s *Server) Start(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	if port <= 0 {
		logger.Warn("Admin server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(ctx),
	}

	go func() {
		logger.Info("Admin server starting", "address", fmt.Sprintf("http://localhost%s/modules", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server failed unexpectedly", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if s.httpServer == nil {
		logger.Debug("Admin server was not running.")
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Info("Shutting down admin server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Admin server shut down gracefully.")
	return nil
}
