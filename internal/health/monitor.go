package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/metrics"
	"github.com/vk/modhost/internal/modkit"
	"github.com/vk/modhost/internal/registry"
)

// Config holds the monitor's sampling interval and hysteresis thresholds.
type Config struct {
	// Interval between samples.
	Interval time.Duration
	// DegradeBelow is the threshold under which a module is considered
	// degraded.
	DegradeBelow float64
	// RecoverAt is the threshold at or above which a degraded module is
	// considered recovered. Must be strictly greater than DegradeBelow.
	RecoverAt float64
	// CallbackWorkers bounds the pool that runs module callbacks.
	// Defaults to 4.
	CallbackWorkers int
	// StopTimeout bounds how long Stop waits for in-flight callbacks.
	// Defaults to 5s.
	StopTimeout time.Duration
}

// Monitor owns the sampling loop. It reads the registry but never changes
// lifecycle state; the only field it writes is each entry's degraded flag.
type Monitor struct {
	reg     *registry.Registry
	sampler Sampler
	cfg     Config

	pool   *ants.Pool
	cancel context.CancelFunc
	runCtx context.Context
	wg     sync.WaitGroup
}

// New validates the configuration and creates a stopped Monitor.
func New(reg *registry.Registry, sampler Sampler, cfg Config) (*Monitor, error) {
	if sampler == nil {
		return nil, fmt.Errorf("sampler must not be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampling interval must be positive, got %v", cfg.Interval)
	}
	if cfg.RecoverAt <= cfg.DegradeBelow {
		return nil, fmt.Errorf("recovery threshold %.2f must be greater than degrade threshold %.2f",
			cfg.RecoverAt, cfg.DegradeBelow)
	}
	if cfg.CallbackWorkers <= 0 {
		cfg.CallbackWorkers = 4
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}

	pool, err := ants.NewPool(cfg.CallbackWorkers)
	if err != nil {
		return nil, fmt.Errorf("creating callback pool: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		reg:     reg,
		sampler: sampler,
		cfg:     cfg,
		pool:    pool,
		runCtx:  runCtx,
		cancel:  cancel,
	}, nil
}

// Start runs the sampling loop until the context is canceled or Stop is
// called. It blocks; run it on its own goroutine. The first sample is taken
// immediately rather than one interval in.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	logger.Info("Health monitor started.",
		"interval", m.cfg.Interval,
		"degrade_below", m.cfg.DegradeBelow,
		"recover_at", m.cfg.RecoverAt)

	m.tick(ctx)
	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-ctx.Done():
			logger.Debug("Health monitor stopping: context canceled.")
			return
		case <-m.runCtx.Done():
			logger.Debug("Health monitor stopping: Stop called.")
			return
		}
	}
}

// Stop cancels future ticks, waits for the loop to exit, then waits — up to
// StopTimeout — for in-flight callbacks to finish.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	if err := m.pool.ReleaseTimeout(m.cfg.StopTimeout); err != nil {
		slog.Default().Warn("Health callbacks still running at stop timeout.", "error", err)
	}
}

// tick takes one sample and evaluates hysteresis for every module in this
// tick's snapshot of Enabled, health-reactive modules. Modules disabled or
// removed after the snapshot simply miss this tick.
func (m *Monitor) tick(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		metrics.SampleErrors.Inc()
		logger.Warn("Host metric sample failed, skipping tick.", "error", err)
		return
	}
	metrics.HostSample.Set(sample.TPS)

	for _, entry := range m.reg.Enabled() {
		if !entry.Capabilities().HealthReactive {
			continue
		}
		m.evaluate(ctx, entry, sample)
	}
}

// evaluate applies the Schmitt-trigger comparison for one module. The flag
// flips synchronously in the tick (that is what makes the callbacks
// edge-triggered); the callback itself runs on the bounded pool so a slow
// module cannot stall the loop or its peers.
func (m *Monitor) evaluate(ctx context.Context, entry *registry.Entry, sample modkit.HealthSample) {
	name := entry.Name()
	reactive, ok := entry.Instance().(modkit.HealthReactive)
	if !ok {
		return
	}

	switch {
	case !entry.Degraded() && sample.TPS < m.cfg.DegradeBelow:
		entry.SetDegraded(true)
		metrics.DegradedModules.Inc()
		ctxlog.FromContext(ctx).Warn("Module degraded.", "module", name, "tps", sample.TPS)
		m.dispatch(ctx, name, "on_degraded", func(logger *slog.Logger) error {
			return reactive.OnDegraded(sample, logger)
		})
	case entry.Degraded() && sample.TPS >= m.cfg.RecoverAt:
		entry.SetDegraded(false)
		metrics.DegradedModules.Dec()
		ctxlog.FromContext(ctx).Info("Module recovered.", "module", name, "tps", sample.TPS)
		m.dispatch(ctx, name, "on_recovered", func(logger *slog.Logger) error {
			return reactive.OnRecovered(sample, logger)
		})
	}
}

// dispatch hands one callback to the pool. Errors and panics are logged
// against the module and counted; they never stop the loop or affect other
// modules' callbacks in the same tick.
func (m *Monitor) dispatch(ctx context.Context, name, hook string, fn func(logger *slog.Logger) error) {
	logger := ctxlog.Module(ctx, name)
	task := func() {
		if err := safeCallback(fn, logger); err != nil {
			metrics.HookFailures.WithLabelValues(name, hook).Inc()
			logger.Warn("Health callback failed.", "hook", hook, "error", err)
		}
	}
	if err := m.pool.Submit(task); err != nil {
		logger.Warn("Health callback dropped.", "hook", hook, "error", err)
	}
}

// Snapshots asks every Enabled self-reporting module for an on-demand
// HealthSnapshot. Independent of the hysteresis loop; a panicking reporter
// yields an Unhealthy snapshot instead of taking the query down.
func (m *Monitor) Snapshots(ctx context.Context) map[string]modkit.HealthSnapshot {
	out := make(map[string]modkit.HealthSnapshot)
	for _, entry := range m.reg.Enabled() {
		if !entry.Capabilities().HealthReporter {
			continue
		}
		reporter, ok := entry.Instance().(modkit.HealthReporter)
		if !ok {
			continue
		}
		out[entry.Name()] = safeSnapshot(ctx, entry.Name(), reporter)
	}
	return out
}

func safeSnapshot(ctx context.Context, name string, reporter modkit.HealthReporter) (snap modkit.HealthSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.Module(ctx, name).Error("Health reporter panicked.", "panic", r)
			snap = modkit.HealthSnapshot{
				Level:   modkit.Unhealthy,
				Message: fmt.Sprintf("health reporter panicked: %v", r),
				Time:    time.Now(),
			}
		}
	}()
	return reporter.Health()
}

func safeCallback(fn func(logger *slog.Logger) error, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in health callback: %v", r)
		}
	}()
	return fn(logger)
}
