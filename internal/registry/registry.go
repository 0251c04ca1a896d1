package registry

import (
	"fmt"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/vk/modhost/internal/modkit"
)

// Registry holds one Entry per registered module, keyed by module name.
type Registry struct {
	entries cmap.ConcurrentMap[string, *Entry]
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: cmap.New[*Entry]()}
}

// Register creates an Unloaded entry for the descriptor. Duplicate names are
// rejected; the existing entry is left untouched.
func (r *Registry) Register(desc modkit.Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("module name must not be empty")
	}
	entry := newEntry(desc)
	if !r.entries.SetIfAbsent(desc.Name, entry) {
		return fmt.Errorf("module %q is already registered", desc.Name)
	}
	return nil
}

// Get returns the entry for a module name.
func (r *Registry) Get(name string) (*Entry, bool) {
	return r.entries.Get(name)
}

// Remove deletes the entry for a module name. Callers are expected to have
// verified the lifecycle legality of removal.
func (r *Registry) Remove(name string) {
	r.entries.Remove(name)
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return r.entries.Count()
}

// All returns every entry, sorted by module name for deterministic
// iteration.
func (r *Registry) All() []*Entry {
	items := r.entries.Items()
	out := make([]*Entry, 0, len(items))
	for _, e := range items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Enabled returns a snapshot of the entries that are currently Enabled.
// The monitor takes one of these at the start of each tick.
func (r *Registry) Enabled() []*Entry {
	var out []*Entry
	for _, e := range r.All() {
		if e.State() == modkit.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Descriptors returns a copy of every registered descriptor, sorted by name.
func (r *Registry) Descriptors() []modkit.Descriptor {
	all := r.All()
	out := make([]modkit.Descriptor, 0, len(all))
	for _, e := range all {
		out = append(out, e.Descriptor())
	}
	return out
}

// Statuses returns a copy-on-read status view of every module, sorted by
// name.
func (r *Registry) Statuses() []modkit.Status {
	all := r.All()
	out := make([]modkit.Status, 0, len(all))
	for _, e := range all {
		out = append(out, e.Status())
	}
	return out
}
