package resolver

// Three-color depth-first search over REQUIRED edges. White nodes are
// unvisited, gray nodes are on the current recursion stack, black nodes are
// fully explored. A REQUIRED edge into a gray node is a back edge; the
// cycle is the stack segment from that node onward, closed with a repeat of
// its first element so callers can render "A -> B -> C -> A" verbatim.

const (
	white = iota
	gray
	black
)

// Cycles returns every REQUIRED-edge cycle found, each as an ordered name
// path ending with a repeat of its first element. A self-dependency yields
// the two-element path [A, A]. Traversal order is sorted, so results are
// deterministic across runs.
func (g *Graph) Cycles() [][]string {
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycles [][]string

	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)

		for _, dep := range g.RequiredDeps(name) {
			switch color[dep] {
			case white:
				visit(dep)
			case gray:
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start+1)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, dep)
				cycles = append(cycles, cycle)
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
	}

	for _, name := range g.Names() {
		if color[name] == white {
			visit(name)
		}
	}
	return cycles
}

// CycleMembers maps every module that sits on a REQUIRED cycle to the path
// of the first cycle it was found on.
func (g *Graph) CycleMembers() map[string][]string {
	members := make(map[string][]string)
	for _, cycle := range g.Cycles() {
		for _, name := range cycle[:len(cycle)-1] {
			if _, ok := members[name]; !ok {
				members[name] = cycle
			}
		}
	}
	return members
}
