package stage

import "fmt"

// Graph records, for each stage, the stages that must be complete before it
// may be entered. A Graph is immutable after construction; cycles are a
// configuration bug and are rejected by New.
type Graph struct {
	order []Stage
	deps  map[Stage][]Stage
	topo  []Stage
}

// New builds a graph over the given stages. The slice fixes declaration
// order, which breaks ties in DefaultOrder. Dependencies on stages outside
// the set, duplicate stages, and cycles are construction errors.
func New(order []Stage, deps map[Stage][]Stage) (*Graph, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("stage: graph requires at least one stage")
	}
	known := make(map[Stage]struct{}, len(order))
	for _, s := range order {
		if _, dup := known[s]; dup {
			return nil, fmt.Errorf("stage: duplicate stage %s", s)
		}
		known[s] = struct{}{}
	}
	g := &Graph{
		order: append([]Stage(nil), order...),
		deps:  make(map[Stage][]Stage, len(deps)),
	}
	for s, prereqs := range deps {
		if _, ok := known[s]; !ok {
			return nil, fmt.Errorf("stage: graph references unknown stage %s", s)
		}
		for _, dep := range prereqs {
			if _, ok := known[dep]; !ok {
				return nil, fmt.Errorf("stage: %s depends on unknown stage %s", s, dep)
			}
			if dep == s {
				return nil, fmt.Errorf("stage: %s depends on itself", s)
			}
		}
		g.deps[s] = append([]Stage(nil), prereqs...)
	}
	topo, err := g.sort()
	if err != nil {
		return nil, err
	}
	g.topo = topo
	return g, nil
}

// Default wires the pipeline's standard dependencies: everything that reads
// the chosen species sits downstream of it, and gear pricing depends on the
// attribute spread.
func Default() *Graph {
	g, err := New(All(), map[Stage][]Stage{
		Attributes: {Species},
		Body:       {Species},
		Name:       {Species},
		Gear:       {Attributes},
	})
	if err != nil {
		panic(err)
	}
	return g
}

// Stages returns the graph's stages in declaration order.
func (g *Graph) Stages() []Stage {
	return append([]Stage(nil), g.order...)
}

// Dependencies returns the direct prerequisites of s.
func (g *Graph) Dependencies(s Stage) []Stage {
	deps := g.deps[s]
	if len(deps) == 0 {
		return nil
	}
	return append([]Stage(nil), deps...)
}

// DefaultOrder returns a deterministic full ordering of all stages consistent
// with the dependency relation: a stable topological sort with ties broken by
// declaration order.
func (g *Graph) DefaultOrder() []Stage {
	return append([]Stage(nil), g.topo...)
}

// CanEnter reports whether every prerequisite of s is in completed.
func (g *Graph) CanEnter(s Stage, completed map[Stage]bool) bool {
	for _, dep := range g.deps[s] {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// DownstreamOf returns the transitive closure of stages whose prerequisites
// include s, in declaration order. The result is the invalidation set: when s
// is re-entered, every completed stage in it must be reset.
func (g *Graph) DownstreamOf(s Stage) []Stage {
	tainted := map[Stage]bool{s: true}
	var out []Stage
	// The topological order guarantees a stage is visited after everything it
	// depends on, so one pass suffices.
	for _, candidate := range g.topo {
		if tainted[candidate] {
			continue
		}
		for _, dep := range g.deps[candidate] {
			if tainted[dep] {
				tainted[candidate] = true
				break
			}
		}
	}
	for _, candidate := range g.order {
		if candidate != s && tainted[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

// sort is Kahn's algorithm with declaration order as the tie-breaker, which
// keeps the result stable across runs.
func (g *Graph) sort() ([]Stage, error) {
	indegree := make(map[Stage]int, len(g.order))
	for _, s := range g.order {
		indegree[s] = len(g.deps[s])
	}
	placed := make(map[Stage]bool, len(g.order))
	out := make([]Stage, 0, len(g.order))
	for len(out) < len(g.order) {
		progressed := false
		for _, s := range g.order {
			if placed[s] || indegree[s] != 0 {
				continue
			}
			placed[s] = true
			out = append(out, s)
			for _, other := range g.order {
				for _, dep := range g.deps[other] {
					if dep == s {
						indegree[other]--
					}
				}
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []Stage
			for _, s := range g.order {
				if !placed[s] {
					stuck = append(stuck, s)
				}
			}
			return nil, fmt.Errorf("stage: dependency cycle involving %v", stuck)
		}
	}
	return out, nil
}
