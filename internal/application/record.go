// Package application holds the cross-stage aggregate for one user's
// in-progress character application.
package application

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mistvale/chargen/internal/stage"
)

// State enumerates the application lifecycle.
type State string

const (
	StateInProgress State = "in-progress"
	StateSubmitted  State = "submitted"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
)

// Selection is the opaque per-stage answer payload. Values survive a YAML
// round trip, so readers use the typed accessors rather than assertions on
// concrete types.
type Selection map[string]any

// Int reads an integer leaf, tolerating the int64/float64 widening a
// serialization round trip introduces.
func (s Selection) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// String reads a string leaf.
func (s Selection) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Counts reads a map-of-counts leaf (for repeatable in-stage choices).
func (s Selection) Counts(key string) map[string]int {
	out := map[string]int{}
	raw, ok := s[key].(map[string]any)
	if !ok {
		if typed, isTyped := s[key].(map[string]int); isTyped {
			for k, v := range typed {
				out[k] = v
			}
		}
		return out
	}
	for k, v := range raw {
		switch n := v.(type) {
		case int:
			out[k] = n
		case int64:
			out[k] = int(n)
		case float64:
			out[k] = int(n)
		}
	}
	return out
}

// Strings reads a list-of-strings leaf.
func (s Selection) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Record is the aggregate of all selections for one application run.
// Completed-stage membership is only ever reduced through Invalidate, which
// enforces the downstream cascade.
type Record struct {
	ID      string
	Account string
	State   State

	current    stage.Stage
	completed  map[stage.Stage]bool
	selections map[stage.Stage]Selection
}

// New starts an empty in-progress application for an account.
func New(account string) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Account:    account,
		State:      StateInProgress,
		current:    stage.Menu,
		completed:  map[stage.Stage]bool{},
		selections: map[stage.Stage]Selection{},
	}
}

// CurrentStage returns the stage pointer.
func (r *Record) CurrentStage() stage.Stage { return r.current }

// SetCurrentStage moves the stage pointer. Completion bookkeeping is
// separate: entering a stage never marks it complete.
func (r *Record) SetCurrentStage(s stage.Stage) { r.current = s }

// Completed returns a copy of the completed-stage set.
func (r *Record) Completed() map[stage.Stage]bool {
	out := make(map[stage.Stage]bool, len(r.completed))
	for s := range r.completed {
		out[s] = true
	}
	return out
}

// IsComplete reports whether s has been completed.
func (r *Record) IsComplete(s stage.Stage) bool { return r.completed[s] }

// MarkComplete records that s finished. Only the session driver calls this,
// after the stage's session reaches Done.
func (r *Record) MarkComplete(s stage.Stage) {
	r.completed[s] = true
}

// Invalidate is the only permitted way to remove entries from the completed
// set. Re-entering s discards s's own completion plus every completed stage
// downstream of it, along with their payloads, and returns what was dropped
// in declaration order.
func (r *Record) Invalidate(g *stage.Graph, s stage.Stage) []stage.Stage {
	var dropped []stage.Stage
	if r.completed[s] {
		delete(r.completed, s)
		delete(r.selections, s)
		dropped = append(dropped, s)
	}
	for _, downstream := range g.DownstreamOf(s) {
		if r.completed[downstream] {
			delete(r.completed, downstream)
			delete(r.selections, downstream)
			dropped = append(dropped, downstream)
		}
	}
	return dropped
}

// Selection returns the payload stored for s, or nil.
func (r *Record) Selection(s stage.Stage) Selection {
	return r.selections[s]
}

// SetSelection stores the payload for s.
func (r *Record) SetSelection(s stage.Stage, sel Selection) {
	if sel == nil {
		delete(r.selections, s)
		return
	}
	r.selections[s] = sel
}

// Snapshot is the serializable form of a Record.
type Snapshot struct {
	ID         string                    `yaml:"id" json:"id"`
	Account    string                    `yaml:"account" json:"account"`
	State      State                     `yaml:"state" json:"state"`
	Current    stage.Stage               `yaml:"current" json:"current"`
	Completed  []stage.Stage             `yaml:"completed,omitempty" json:"completed,omitempty"`
	Selections map[stage.Stage]Selection `yaml:"selections,omitempty" json:"selections,omitempty"`
}

// Snapshot captures the record for persistence.
func (r *Record) Snapshot() Snapshot {
	snap := Snapshot{
		ID:      r.ID,
		Account: r.Account,
		State:   r.State,
		Current: r.current,
	}
	for s := range r.completed {
		snap.Completed = append(snap.Completed, s)
	}
	sort.Slice(snap.Completed, func(i, j int) bool { return snap.Completed[i] < snap.Completed[j] })
	if len(r.selections) > 0 {
		snap.Selections = make(map[stage.Stage]Selection, len(r.selections))
		for s, sel := range r.selections {
			snap.Selections[s] = sel
		}
	}
	return snap
}

// FromSnapshot rebuilds a record from its persisted form.
func FromSnapshot(snap Snapshot) (*Record, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("application: snapshot missing id")
	}
	if snap.Account == "" {
		return nil, fmt.Errorf("application %s: snapshot missing account", snap.ID)
	}
	r := &Record{
		ID:         snap.ID,
		Account:    snap.Account,
		State:      snap.State,
		current:    snap.Current,
		completed:  map[stage.Stage]bool{},
		selections: map[stage.Stage]Selection{},
	}
	if r.State == "" {
		r.State = StateInProgress
	}
	if r.current == "" {
		r.current = stage.Menu
	}
	for _, s := range snap.Completed {
		r.completed[s] = true
	}
	for s, sel := range snap.Selections {
		r.selections[s] = sel
	}
	return r, nil
}
