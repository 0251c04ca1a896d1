package registry

import (
	"sync"
	"time"

	"github.com/vk/modhost/internal/modkit"
)

// Entry is the registry record for one module: the immutable descriptor,
// the capability set computed once at registration, and the mutable
// lifecycle fields guarded by the entry's own lock.
type Entry struct {
	desc modkit.Descriptor
	caps modkit.Capabilities

	mu        sync.RWMutex
	state     modkit.State
	lastErr   error
	enabledAt *time.Time
	degraded  bool
}

func newEntry(desc modkit.Descriptor) *Entry {
	return &Entry{
		desc:  desc,
		caps:  modkit.CapabilitiesOf(desc.Instance),
		state: modkit.Unloaded,
	}
}

// Name returns the module name.
func (e *Entry) Name() string { return e.desc.Name }

// Descriptor returns a copy of the immutable descriptor.
func (e *Entry) Descriptor() modkit.Descriptor { return e.desc }

// Capabilities returns the capability set computed at registration.
func (e *Entry) Capabilities() modkit.Capabilities { return e.caps }

// Instance returns the module's implementation object.
func (e *Entry) Instance() any { return e.desc.Instance }

// State returns the current lifecycle state.
func (e *Entry) State() modkit.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetState moves the entry to the given state. Reaching Enabled stamps
// enabledAt and clears the last error; leaving Enabled clears the degraded
// flag so a re-enabled module starts a fresh hysteresis cycle.
func (e *Entry) SetState(s modkit.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
	switch s {
	case modkit.Enabled:
		now := time.Now()
		e.enabledAt = &now
		e.lastErr = nil
	case modkit.Disabled, modkit.Failed, modkit.Unloaded:
		e.enabledAt = nil
		e.degraded = false
	}
}

// Fail records err and moves the entry to Failed in one step.
func (e *Entry) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = modkit.Failed
	e.lastErr = err
	e.enabledAt = nil
	e.degraded = false
}

// SetErr records an error without changing state, used for reload and
// disable hook failures that must stay visible to the status query.
func (e *Entry) SetErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
}

// Err returns the last recorded error, if any.
func (e *Entry) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Degraded reports the hysteresis flag owned by the health monitor.
func (e *Entry) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

// SetDegraded updates the hysteresis flag. Only the health monitor calls
// this.
func (e *Entry) SetDegraded(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.degraded = v
}

// EnabledAt returns when the module last reached Enabled, or nil.
func (e *Entry) EnabledAt() *time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabledAt
}

// Status assembles a copy-on-read view of the entry.
func (e *Entry) Status() modkit.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := modkit.Status{
		Name:        e.desc.Name,
		Version:     e.desc.Version,
		Description: e.desc.Description,
		Authors:     append([]string(nil), e.desc.Authors...),
		State:       e.state.String(),
		EnabledAt:   e.enabledAt,
		Degraded:    e.degraded,
	}
	if e.lastErr != nil {
		st.Error = e.lastErr.Error()
	}
	return st
}
