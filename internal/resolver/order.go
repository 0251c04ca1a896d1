package resolver

import "sort"

// LoadOrder computes the deterministic order in which modules are
// attempted, using Kahn's algorithm. A module becomes ready once all its
// present REQUIRED and SOFT dependencies have been emitted; among ready
// modules, higher priority wins, then the lexically smaller name.
//
// SOFT edges are only a hint: whenever the ready set drains while modules
// remain, every waiting module whose outstanding edges are all SOFT is
// re-admitted with those edges dropped. REQUIRED ordering is therefore
// never violated by a soft hint, and soft cycles cannot stall the order.
// Modules left over after that (REQUIRED cycles, including self-dependency)
// are appended in priority-then-name order so the controller still visits
// them to record their failure.
func (g *Graph) LoadOrder() []string {
	reqLeft := make(map[string]int, len(g.nodes))
	softLeft := make(map[string]int, len(g.nodes))
	for name, n := range g.nodes {
		reqLeft[name] = len(n.requires)
		softLeft[name] = len(n.soft)
	}

	queued := make(map[string]struct{}, len(g.nodes))
	var ready []string
	admit := func(name string) {
		if _, ok := queued[name]; ok {
			return
		}
		queued[name] = struct{}{}
		ready = append(ready, name)
	}
	for name := range g.nodes {
		if reqLeft[name] == 0 && softLeft[name] == 0 {
			admit(name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		if len(ready) == 0 {
			// Stalled: relax modules held back only by soft edges.
			relaxed := false
			for name := range g.nodes {
				if _, done := queued[name]; done {
					continue
				}
				if reqLeft[name] == 0 && softLeft[name] > 0 {
					softLeft[name] = 0
					admit(name)
					relaxed = true
				}
			}
			if !relaxed {
				break
			}
		}

		sort.Slice(ready, func(i, j int) bool { return g.less(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		n := g.nodes[next]
		for dep := range n.dependents {
			if _, done := queued[dep]; done {
				continue
			}
			if reqLeft[dep]--; reqLeft[dep] == 0 && softLeft[dep] == 0 {
				admit(dep)
			}
		}
		for dep := range n.softDependents {
			if _, done := queued[dep]; done {
				continue
			}
			if softLeft[dep]--; softLeft[dep] == 0 && reqLeft[dep] == 0 {
				admit(dep)
			}
		}
	}

	// Whatever remains sits on a REQUIRED cycle.
	var rest []string
	for name := range g.nodes {
		if _, done := queued[name]; !done {
			rest = append(rest, name)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return g.less(rest[i], rest[j]) })
	return append(order, rest...)
}

// less orders by declared priority (higher first), then by name.
func (g *Graph) less(a, b string) bool {
	pa, pb := g.nodes[a].priority, g.nodes[b].priority
	if pa != pb {
		return pa > pb
	}
	return a < b
}
