package session

import (
	"fmt"

	"github.com/mistvale/chargen/internal/stage"
)

// Flow drives a private phase sequence nested inside one outer session. The
// phase order is the owning graph's default order, and advancement is
// skip-aware: phases whose probe reports empty are passed over automatically
// until a non-empty phase is found or the flow completes.
type Flow struct {
	order []stage.Stage
	empty func(stage.Stage) bool
	idx   int
	done  bool
}

// NewFlow builds a flow over the graph's default order. The empty probe
// reports whether a phase currently has zero eligible choices; a nil probe
// means every phase is non-empty. The flow starts positioned on the first
// non-empty phase (or already done when every phase is empty).
func NewFlow(g *stage.Graph, empty func(stage.Stage) bool) (*Flow, error) {
	if g == nil {
		return nil, fmt.Errorf("session: flow requires a graph")
	}
	if empty == nil {
		empty = func(stage.Stage) bool { return false }
	}
	f := &Flow{order: g.DefaultOrder(), empty: empty}
	f.settle()
	return f, nil
}

// Current returns the active phase. ok is false once the flow has completed.
func (f *Flow) Current() (stage.Stage, bool) {
	if f.done {
		return "", false
	}
	return f.order[f.idx], true
}

// Advance moves past the current phase, skipping empty phases, and returns
// the new phase. ok is false when the flow completes instead.
func (f *Flow) Advance() (stage.Stage, bool) {
	if f.done {
		return "", false
	}
	f.idx++
	f.settle()
	return f.Current()
}

// Back moves to the nearest preceding non-empty phase and returns it. The
// destination is computed and taken by the same walk, so callers can use the
// ok result both to decide whether to offer "back" and to perform it — the
// two can never disagree. A false result leaves the flow unchanged.
func (f *Flow) Back() (stage.Stage, bool) {
	start := f.idx
	if f.done {
		start = len(f.order)
	}
	for i := start - 1; i >= 0; i-- {
		if !f.empty(f.order[i]) {
			f.idx = i
			f.done = false
			return f.order[i], true
		}
	}
	return "", false
}

// Done reports whether every phase has been visited or skipped.
func (f *Flow) Done() bool { return f.done }

// Remaining counts the phases at or after the cursor that are non-empty.
func (f *Flow) Remaining() int {
	if f.done {
		return 0
	}
	count := 0
	for i := f.idx; i < len(f.order); i++ {
		if !f.empty(f.order[i]) {
			count++
		}
	}
	return count
}

// settle skips forward over empty phases; recursion bottom is completion.
func (f *Flow) settle() {
	for f.idx < len(f.order) && f.empty(f.order[f.idx]) {
		f.idx++
	}
	if f.idx >= len(f.order) {
		f.done = true
	}
}
