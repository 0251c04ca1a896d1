package modkit

import "time"

// Descriptor is the static identity of a module as supplied by the discovery
// collaborator: who it is, what it needs, and the instance carrying its
// hooks. Mutable lifecycle state (current State, last error, degraded flag)
// lives on the registry entry, not here.
type Descriptor struct {
	Name        string
	Version     string
	Description string
	Authors     []string

	// Requires lists module names that must be Enabled before this module
	// can enable. SoftRequires lists optional collaborators: absent or
	// non-Enabled soft dependencies degrade gracefully instead of blocking.
	Requires     []string
	SoftRequires []string

	Priority Priority

	// Instance is the module's implementation object. It is exclusively
	// owned by the registry entry once registered. A nil instance is legal
	// and yields an empty capability set.
	Instance any
}

// Status is a copy-on-read view of a module's descriptor and current
// lifecycle state, safe to hand to admin surfaces.
type Status struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	State       string     `json:"state"`
	Error       string     `json:"error,omitempty"`
	EnabledAt   *time.Time `json:"enabled_at,omitempty"`
	Degraded    bool       `json:"degraded"`
}
