package modkit

import "log/slog"

// Context is the narrow surface handed to a module during its init, reload,
// and disable hooks. It exposes a module-scoped logger, the module's own
// configuration object, and the collaborator references that were injected
// for it. Config loading and wiring happen outside the core; the context
// only carries the results.
type Context struct {
	name          string
	logger        *slog.Logger
	config        any
	collaborators map[string]any
}

// NewContext assembles a hook context. The collaborators map is keyed by
// dependency name and contains only collaborators that were Enabled at
// injection time; soft dependencies that were absent or not Enabled are
// simply missing from it.
func NewContext(name string, logger *slog.Logger, config any, collaborators map[string]any) *Context {
	return &Context{
		name:          name,
		logger:        logger,
		config:        config,
		collaborators: collaborators,
	}
}

// Name returns the module's own name.
func (c *Context) Name() string { return c.name }

// Logger returns the module-scoped logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Config returns the module's configuration object, or nil when the host
// supplied none.
func (c *Context) Config() any { return c.config }

// Collaborator returns the injected instance of a declared dependency.
// Required dependencies are always present here; soft dependencies are
// present only if they were Enabled when this module loaded.
func (c *Context) Collaborator(name string) (any, bool) {
	inst, ok := c.collaborators[name]
	return inst, ok
}
