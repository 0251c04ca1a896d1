package resolver

import (
	"sort"

	"github.com/vk/modhost/internal/modkit"
)

// EdgeKind distinguishes hard prerequisites from optional enhancements.
type EdgeKind int

const (
	Required EdgeKind = iota
	Soft
)

func (k EdgeKind) String() string {
	if k == Soft {
		return "soft"
	}
	return "required"
}

// Edge is one resolved dependency relation: From depends on To.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

type node struct {
	name     string
	priority modkit.Priority

	// Adjacency over names present in the descriptor set. Maps double as
	// deduplication of repeated declarations. A module listed both as
	// required and soft counts as required only.
	requires       map[string]struct{}
	soft           map[string]struct{}
	dependents     map[string]struct{}
	softDependents map[string]struct{}

	missing     []string // declared required deps with no descriptor
	missingSoft []string // declared soft deps with no descriptor
}

// Graph is an immutable dependency graph over one descriptor set.
type Graph struct {
	nodes map[string]*node
}

// New builds the graph. Dependencies naming modules absent from the set are
// recorded as missing rather than silently dropped; a self-dependency is
// kept as a one-node REQUIRED cycle for the detector to report.
func New(descs []modkit.Descriptor) *Graph {
	g := &Graph{nodes: make(map[string]*node, len(descs))}
	for _, d := range descs {
		g.nodes[d.Name] = &node{
			name:           d.Name,
			priority:       d.Priority,
			requires:       make(map[string]struct{}),
			soft:           make(map[string]struct{}),
			dependents:     make(map[string]struct{}),
			softDependents: make(map[string]struct{}),
		}
	}
	for _, d := range descs {
		n := g.nodes[d.Name]
		for _, dep := range d.Requires {
			if _, ok := g.nodes[dep]; !ok {
				n.missing = append(n.missing, dep)
				continue
			}
			n.requires[dep] = struct{}{}
			g.nodes[dep].dependents[d.Name] = struct{}{}
		}
		for _, dep := range d.SoftRequires {
			if _, ok := g.nodes[dep]; !ok {
				n.missingSoft = append(n.missingSoft, dep)
				continue
			}
			if _, hard := n.requires[dep]; hard {
				continue
			}
			n.soft[dep] = struct{}{}
			g.nodes[dep].softDependents[d.Name] = struct{}{}
		}
		sort.Strings(n.missing)
		sort.Strings(n.missingSoft)
	}
	return g
}

// Names returns all module names in the graph, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing maps each module to its declared REQUIRED dependencies that have
// no descriptor. Modules with no missing dependencies are absent.
func (g *Graph) Missing() map[string][]string {
	out := make(map[string][]string)
	for name, n := range g.nodes {
		if len(n.missing) > 0 {
			out[name] = append([]string(nil), n.missing...)
		}
	}
	return out
}

// MissingSoft is the SOFT counterpart of Missing. Purely informational:
// missing soft dependencies never block anything.
func (g *Graph) MissingSoft() map[string][]string {
	out := make(map[string][]string)
	for name, n := range g.nodes {
		if len(n.missingSoft) > 0 {
			out[name] = append([]string(nil), n.missingSoft...)
		}
	}
	return out
}

// RequiredDeps returns the present REQUIRED dependencies of a module,
// sorted.
func (g *Graph) RequiredDeps(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return sortedKeys(n.requires)
}

// SoftDeps returns the present SOFT dependencies of a module, sorted.
func (g *Graph) SoftDeps(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return sortedKeys(n.soft)
}

// Dependents returns the modules that directly REQUIRE the given module,
// sorted.
func (g *Graph) Dependents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// TransitiveDependents returns every module that reaches the given module
// through REQUIRED edges, sorted. Used to compute the disable cascade.
func (g *Graph) TransitiveDependents(name string) []string {
	seen := make(map[string]struct{})
	var walk func(string)
	walk = func(cur string) {
		n, ok := g.nodes[cur]
		if !ok {
			return
		}
		for dep := range n.dependents {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			walk(dep)
		}
	}
	walk(name)
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
