package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/modkit"
)

// modulesResponse is returned by GET /modules.
type modulesResponse struct {
	Modules []modkit.Status `json:"modules"`
}

// actionResponse wraps the updated module status returned by write
// endpoints, with the operation error spelled out when there was one.
type actionResponse struct {
	Module modkit.Status `json:"module"`
	Error  string        `json:"error,omitempty"`
}

// healthEntry is one module's self-reported snapshot in GET /health.
type healthEntry struct {
	Module  string             `json:"module"`
	Level   string             `json:"level"`
	Message string             `json:"message,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Time    time.Time          `json:"time"`
}

func (s *Server) handleList(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(ctx, w, http.StatusOK, modulesResponse{Modules: s.reg.Statuses()})
	}
}

func (s *Server) handleInfo(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		entry, ok := s.reg.Get(name)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(ctx, w, http.StatusOK, entry.Status())
	}
}

func (s *Server) handleEnable(ctx context.Context) http.HandlerFunc {
	return s.action(ctx, func(name string) error {
		return s.ctrl.Enable(ctx, name)
	})
}

func (s *Server) handleDisable(ctx context.Context) http.HandlerFunc {
	return s.action(ctx, func(name string) error {
		return s.ctrl.Disable(ctx, name)
	})
}

func (s *Server) handleReload(ctx context.Context) http.HandlerFunc {
	return s.action(ctx, func(name string) error {
		return s.ctrl.Reload(ctx, name)
	})
}

func (s *Server) handleReloadAll(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := s.ctrl.ReloadAll(ctx)
		out := struct {
			Failures map[string]string `json:"failures,omitempty"`
		}{}
		if len(failures) > 0 {
			out.Failures = make(map[string]string, len(failures))
			for name, err := range failures {
				out.Failures[name] = err.Error()
			}
		}
		writeJSON(ctx, w, http.StatusOK, out)
	}
}

func (s *Server) handleHealth(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := []healthEntry{}
		if s.monitor != nil {
			snaps := s.monitor.Snapshots(r.Context())
			for name, snap := range snaps {
				entries = append(entries, healthEntry{
					Module:  name,
					Level:   snap.Level.String(),
					Message: snap.Message,
					Metrics: snap.Metrics,
					Time:    snap.Time,
				})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Module < entries[j].Module })
		}
		writeJSON(ctx, w, http.StatusOK, struct {
			Health []healthEntry `json:"health"`
		}{Health: entries})
	}
}

// action wraps a single-module lifecycle operation: run it, then return the
// module's fresh status. Operation errors come back as 409 with the status
// attached, since the module itself records the error for introspection.
func (s *Server) action(ctx context.Context, op func(name string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, ok := s.reg.Get(name); !ok {
			http.NotFound(w, r)
			return
		}

		resp := actionResponse{}
		status := http.StatusOK
		if err := op(name); err != nil {
			resp.Error = err.Error()
			status = http.StatusConflict
		}
		if entry, ok := s.reg.Get(name); ok {
			resp.Module = entry.Status()
		}
		writeJSON(ctx, w, status, resp)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to encode admin response.", "error", err)
	}
}
