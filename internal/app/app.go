// Package app composes the orchestrator: discovery feeds the registry, the
// lifecycle controller brings modules up in dependency order, the health
// monitor watches the host, and the admin server exposes the whole thing
// over HTTP.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modhost/internal/admin"
	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/discovery"
	"github.com/vk/modhost/internal/health"
	"github.com/vk/modhost/internal/hostmetric"
	"github.com/vk/modhost/internal/lifecycle"
	"github.com/vk/modhost/internal/registry"
)

// App owns the wiring and the run loop.
type App struct {
	cfg    *Config
	logger *slog.Logger

	reg  *registry.Registry
	ctrl *lifecycle.Controller

	instances map[string]any
	configs   map[string]any
}

// NewApp creates the application instance. Log output goes to outW.
func NewApp(outW io.Writer, cfg *Config) *App {
	return &App{
		cfg:       cfg,
		logger:    newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		reg:       registry.New(),
		instances: make(map[string]any),
		configs:   make(map[string]any),
	}
}

// Bind attaches an implementation to a discovered module name. Manifests
// describe modules; the host supplies the code. Descriptors without a bound
// instance are registered anyway and simply have no hooks.
func (a *App) Bind(name string, instance any) {
	a.instances[name] = instance
}

// BindConfig attaches a configuration object handed to the module's hooks.
func (a *App) BindConfig(name string, cfg any) {
	a.configs[name] = cfg
}

// Run discovers modules, enables them, and blocks until the context is
// canceled. Shutdown disables every module in reverse load order before
// returning.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("Starting module host.", "manifests", a.cfg.ManifestPath)

	descs, err := discovery.Load(ctx, a.cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("discovering modules: %w", err)
	}
	policy, err := discovery.LoadPolicy(ctx, a.cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	a.ctrl = lifecycle.New(a.reg, lifecycle.WithConfigSource(func(name string) any {
		return a.configs[name]
	}))

	for _, desc := range descs {
		desc.Instance = a.instances[desc.Name]
		if err := a.ctrl.Register(desc); err != nil {
			return fmt.Errorf("registering module %q: %w", desc.Name, err)
		}
	}
	a.ctrl.RegisterAll(ctx, policy)

	sampler := hostmetric.NewLoadSampler(a.cfg.NominalTPS)
	monitor, err := health.New(a.reg, sampler, health.Config{
		Interval:     a.cfg.SampleInterval,
		DegradeBelow: a.cfg.DegradeBelow,
		RecoverAt:    a.cfg.RecoverAt,
	})
	if err != nil {
		return fmt.Errorf("configuring health monitor: %w", err)
	}
	go monitor.Start(ctx)

	adminSrv := admin.New(a.ctrl, a.reg, monitor)
	adminSrv.Start(ctx, a.cfg.AdminPort)

	<-ctx.Done()
	a.logger.Info("Shutdown signal received.")

	// The run context is already canceled; shutdown gets a fresh one so the
	// teardown steps can still use timeouts and logging.
	shutdownCtx := ctxlog.WithLogger(context.Background(), a.logger)
	monitor.Stop()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("Admin server did not shut down cleanly.", "error", err)
	}
	a.ctrl.ShutdownAll(shutdownCtx)

	a.logger.Info("Module host stopped.")
	return nil
}
