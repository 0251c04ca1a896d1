package lifecycle

import (
	"fmt"
	"strings"
)

// CycleError reports a REQUIRED-dependency cycle. Path holds the ordered
// module names with the first repeated at the end, rendered verbatim in
// diagnostics.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

// MissingDependencyError reports REQUIRED dependencies with no registered
// descriptor.
type MissingDependencyError struct {
	Module  string
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %q requires unregistered module(s): %s",
		e.Module, strings.Join(e.Missing, ", "))
}

// DependencyFailedError marks a module blocked because a REQUIRED
// dependency did not reach Enabled.
type DependencyFailedError struct {
	Module     string
	Dependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("module %q blocked by failed dependency %q", e.Module, e.Dependency)
}

// InitError wraps a failure from collaborator injection or the init hook.
type InitError struct {
	Module string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("module %q failed to initialize: %v", e.Module, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// DisableError wraps a failure from the disable hook. The transition to
// Disabled completes regardless; the error is kept for introspection.
type DisableError struct {
	Module string
	Err    error
}

func (e *DisableError) Error() string {
	return fmt.Sprintf("module %q disable hook failed: %v", e.Module, e.Err)
}

func (e *DisableError) Unwrap() error { return e.Err }

// ReloadError wraps a failure from the reload hook. The module stays
// Enabled with its prior internal state.
type ReloadError struct {
	Module string
	Err    error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("module %q reload failed: %v", e.Module, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }
