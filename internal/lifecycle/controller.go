package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/metrics"
	"github.com/vk/modhost/internal/modkit"
	"github.com/vk/modhost/internal/registry"
	"github.com/vk/modhost/internal/resolver"
)

// Controller is the only component allowed to transition module state. A
// single mutex serializes lifecycle operations, so no two transitions for
// the same module can ever run concurrently; the health monitor runs beside
// it and touches only the degraded flag through the registry.
type Controller struct {
	mu        sync.Mutex
	reg       *registry.Registry
	configFor func(name string) any
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfigSource installs the external collaborator that supplies each
// module's configuration object. The controller itself never parses config.
func WithConfigSource(fn func(name string) any) Option {
	return func(c *Controller) { c.configFor = fn }
}

// New creates a Controller over the given registry.
func New(reg *registry.Registry, opts ...Option) *Controller {
	c := &Controller{reg: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a descriptor to the registry in state Unloaded. Duplicate
// names are rejected.
func (c *Controller) Register(desc modkit.Descriptor) error {
	return c.reg.Register(desc)
}

// RegisterAll walks every Unloaded module in resolver load order and
// attempts to enable it. Policy entries set to false park the module in
// Disabled without invoking any hook; cycle members and modules with
// missing REQUIRED dependencies go straight to Failed; everything else runs
// the Loading transition. Per-module errors are recorded on the descriptors
// and never abort the pass.
func (c *Controller) RegisterAll(ctx context.Context, policy map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logger := ctxlog.FromContext(ctx)

	graph := resolver.New(c.reg.Descriptors())
	cycles := graph.CycleMembers()
	missing := graph.Missing()
	for name, deps := range graph.MissingSoft() {
		logger.Debug("Soft dependencies not registered, continuing without them.",
			"module", name, "missing", deps)
	}

	var enabled, failed, skipped int
	for _, name := range graph.LoadOrder() {
		entry, ok := c.reg.Get(name)
		if !ok || entry.State() != modkit.Unloaded {
			continue
		}

		if allow, listed := policy[name]; listed && !allow {
			c.transition(entry, modkit.Disabled)
			logger.Info("Module disabled by policy.", "module", name)
			skipped++
			continue
		}
		if path, ok := cycles[name]; ok {
			c.fail(ctx, entry, &CycleError{Path: path})
			failed++
			continue
		}
		if miss, ok := missing[name]; ok {
			c.fail(ctx, entry, &MissingDependencyError{Module: name, Missing: miss})
			failed++
			continue
		}
		if dep := c.firstUnmetDep(graph, name); dep != "" {
			c.fail(ctx, entry, &DependencyFailedError{Module: name, Dependency: dep})
			failed++
			continue
		}

		if err := c.attempt(ctx, graph, entry); err != nil {
			failed++
		} else {
			enabled++
		}
	}

	logger.Info("Module registration pass complete.",
		"enabled", enabled, "failed", failed, "policy_disabled", skipped)
}

// Enable retries a single Disabled or Failed module through the same
// Loading transition RegisterAll uses. This is the only retry path; failed
// modules are never retried automatically.
func (c *Controller) Enable(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("module %q is not registered", name)
	}
	switch entry.State() {
	case modkit.Disabled, modkit.Failed:
	default:
		return fmt.Errorf("module %q is %s, enable is only legal from disabled or failed", name, entry.State())
	}

	graph := resolver.New(c.reg.Descriptors())
	if path, ok := graph.CycleMembers()[name]; ok {
		err := &CycleError{Path: path}
		c.fail(ctx, entry, err)
		return err
	}
	if miss, ok := graph.Missing()[name]; ok {
		err := &MissingDependencyError{Module: name, Missing: miss}
		c.fail(ctx, entry, err)
		return err
	}
	if dep := c.firstUnmetDep(graph, name); dep != "" {
		err := &DependencyFailedError{Module: name, Dependency: dep}
		c.fail(ctx, entry, err)
		return err
	}
	return c.attempt(ctx, graph, entry)
}

// Disable takes an Enabled module down. Every currently Enabled module that
// transitively REQUIRES the target is disabled first, in reverse load
// order, so no Enabled module is ever left with a disabled REQUIRED
// dependency. Soft dependents are left Enabled and are not notified.
func (c *Controller) Disable(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("module %q is not registered", name)
	}
	if entry.State() != modkit.Enabled {
		return fmt.Errorf("module %q is %s, disable is only legal from enabled", name, entry.State())
	}

	graph := resolver.New(c.reg.Descriptors())
	pos := make(map[string]int)
	for i, n := range graph.LoadOrder() {
		pos[n] = i
	}

	var cascade []*registry.Entry
	for _, dep := range graph.TransitiveDependents(name) {
		if depEntry, ok := c.reg.Get(dep); ok && depEntry.State() == modkit.Enabled {
			cascade = append(cascade, depEntry)
		}
	}
	// Reverse load order: dependents come down before what they depend on.
	for i := 0; i < len(cascade); i++ {
		for j := i + 1; j < len(cascade); j++ {
			if pos[cascade[j].Name()] > pos[cascade[i].Name()] {
				cascade[i], cascade[j] = cascade[j], cascade[i]
			}
		}
	}

	for _, depEntry := range cascade {
		c.disableOne(ctx, graph, depEntry)
	}
	c.disableOne(ctx, graph, entry)
	return nil
}

// Reload invokes the module's reload hook in place. Only legal from
// Enabled, and only for modules with the reload capability. An error leaves
// the module Enabled with its prior internal state and is recorded for
// introspection.
func (c *Controller) Reload(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx, name)
}

// ReloadAll reloads every Enabled module with the reload capability, in
// load order. Failures are collected per module; the pass never aborts.
func (c *Controller) ReloadAll(ctx context.Context) map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()

	graph := resolver.New(c.reg.Descriptors())
	failures := make(map[string]error)
	for _, name := range graph.LoadOrder() {
		entry, ok := c.reg.Get(name)
		if !ok || entry.State() != modkit.Enabled || !entry.Capabilities().Reload {
			continue
		}
		if err := c.reloadLocked(ctx, name); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Unregister removes a descriptor. Only legal from Unloaded, Disabled, or
// Failed.
func (c *Controller) Unregister(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("module %q is not registered", name)
	}
	switch entry.State() {
	case modkit.Unloaded, modkit.Disabled, modkit.Failed:
		c.reg.Remove(name)
		return nil
	default:
		return fmt.Errorf("module %q is %s, unregister is only legal from unloaded, disabled, or failed", name, entry.State())
	}
}

// ShutdownAll disables every Enabled module in reverse load order. Used by
// the host on graceful shutdown.
func (c *Controller) ShutdownAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	graph := resolver.New(c.reg.Descriptors())
	order := graph.LoadOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if entry, ok := c.reg.Get(order[i]); ok && entry.State() == modkit.Enabled {
			c.disableOne(ctx, graph, entry)
		}
	}
}

// attempt runs the Unloaded/Disabled/Failed -> Loading -> Enabled|Failed
// transition: inject collaborators, invoke the init hook, record the
// outcome. Callers have already verified that REQUIRED dependencies are
// Enabled.
func (c *Controller) attempt(ctx context.Context, graph *resolver.Graph, entry *registry.Entry) error {
	name := entry.Name()
	logger := ctxlog.FromContext(ctx)

	c.transition(entry, modkit.Loading)
	mctx := c.buildContext(ctx, graph, name)

	if entry.Capabilities().Init {
		init := entry.Instance().(modkit.Initializer)
		if err := invokeHook("init", func() error { return init.Init(mctx) }); err != nil {
			ierr := &InitError{Module: name, Err: err}
			entry.Fail(ierr)
			metrics.Transitions.WithLabelValues(name, modkit.Failed.String()).Inc()
			metrics.HookFailures.WithLabelValues(name, "init").Inc()
			logger.Error("Module failed to initialize.", "module", name, "error", err)
			return ierr
		}
	}

	c.transition(entry, modkit.Enabled)
	logger.Info("Module enabled.", "module", name, "version", entry.Descriptor().Version)
	return nil
}

// disableOne invokes the disable hook (best effort) and completes the
// transition to Disabled regardless of the hook's outcome. Leaving a module
// Enabled after a failed disable attempt would itself be unsafe, so the
// error is recorded and surfaced rather than honored.
func (c *Controller) disableOne(ctx context.Context, graph *resolver.Graph, entry *registry.Entry) {
	name := entry.Name()
	logger := ctxlog.FromContext(ctx)

	if entry.Capabilities().Disable {
		mctx := c.buildContext(ctx, graph, name)
		disable := entry.Instance().(modkit.Disabler)
		if err := invokeHook("disable", func() error { return disable.Disable(mctx) }); err != nil {
			derr := &DisableError{Module: name, Err: err}
			entry.SetErr(derr)
			metrics.HookFailures.WithLabelValues(name, "disable").Inc()
			logger.Warn("Disable hook failed, module disabled anyway.", "module", name, "error", err)
		}
	}

	c.transition(entry, modkit.Disabled)
	logger.Info("Module disabled.", "module", name)
}

func (c *Controller) reloadLocked(ctx context.Context, name string) error {
	entry, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("module %q is not registered", name)
	}
	if entry.State() != modkit.Enabled {
		return fmt.Errorf("module %q is %s, reload is only legal from enabled", name, entry.State())
	}
	if !entry.Capabilities().Reload {
		return fmt.Errorf("module %q does not support reload", name)
	}

	logger := ctxlog.FromContext(ctx)
	graph := resolver.New(c.reg.Descriptors())
	mctx := c.buildContext(ctx, graph, name)
	reload := entry.Instance().(modkit.Reloadable)

	if err := invokeHook("reload", func() error { return reload.Reload(mctx) }); err != nil {
		rerr := &ReloadError{Module: name, Err: err}
		entry.SetErr(rerr)
		metrics.HookFailures.WithLabelValues(name, "reload").Inc()
		logger.Error("Reload failed, module keeps prior state.", "module", name, "error", err)
		return rerr
	}

	entry.SetErr(nil)
	logger.Info("Module reloaded.", "module", name)
	return nil
}

// buildContext assembles the hook context for a module: module-scoped
// logger, its config object, and every declared collaborator that is
// currently Enabled. A FAILED or absent soft dependency injects nothing,
// exactly like one that was never registered.
func (c *Controller) buildContext(ctx context.Context, graph *resolver.Graph, name string) *modkit.Context {
	collaborators := make(map[string]any)
	for _, dep := range graph.RequiredDeps(name) {
		if depEntry, ok := c.reg.Get(dep); ok && depEntry.State() == modkit.Enabled {
			collaborators[dep] = depEntry.Instance()
		}
	}
	for _, dep := range graph.SoftDeps(name) {
		if depEntry, ok := c.reg.Get(dep); ok && depEntry.State() == modkit.Enabled {
			collaborators[dep] = depEntry.Instance()
		}
	}
	var cfg any
	if c.configFor != nil {
		cfg = c.configFor(name)
	}
	return modkit.NewContext(name, ctxlog.Module(ctx, name), cfg, collaborators)
}

// firstUnmetDep returns the first REQUIRED dependency (sorted) that is not
// currently Enabled, or "" when all are met.
func (c *Controller) firstUnmetDep(graph *resolver.Graph, name string) string {
	for _, dep := range graph.RequiredDeps(name) {
		entry, ok := c.reg.Get(dep)
		if !ok || entry.State() != modkit.Enabled {
			return dep
		}
	}
	return ""
}

func (c *Controller) fail(ctx context.Context, entry *registry.Entry, err error) {
	entry.Fail(err)
	metrics.Transitions.WithLabelValues(entry.Name(), modkit.Failed.String()).Inc()
	ctxlog.FromContext(ctx).Error("Module failed.", "module", entry.Name(), "error", err)
}

func (c *Controller) transition(entry *registry.Entry, s modkit.State) {
	entry.SetState(s)
	metrics.Transitions.WithLabelValues(entry.Name(), s.String()).Inc()
}

// invokeHook shields the controller from module code: a panicking hook is
// converted into an error attributed to that module.
func invokeHook(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", op, r)
		}
	}()
	return fn()
}
