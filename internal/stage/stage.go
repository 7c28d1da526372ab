// Package stage defines the closed set of character-application steps and the
// dependency graph that orders them.
package stage

// Stage identifies one named step of the application pipeline. The set is
// fixed at compile time; identifiers are persisted and must never be renamed
// once stored configuration references them.
type Stage string

const (
	Species    Stage = "species"
	Attributes Stage = "attributes"
	Body       Stage = "body"
	Name       Stage = "name"
	Background Stage = "background"
	Gear       Stage = "gear"

	// Menu and Submit are terminal pseudo-stages: they carry no strategy and
	// never appear in the dependency graph.
	Menu   Stage = "menu"
	Submit Stage = "submit"
)

// pipeline lists the real stages in declaration order. Declaration order is
// the tie-breaker for DefaultOrder, so the order here is load-bearing.
var pipeline = []Stage{Species, Attributes, Body, Name, Background, Gear}

// All returns the pipeline stages in declaration order. Pseudo-stages are
// excluded.
func All() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// Valid reports whether s names a real pipeline stage.
func Valid(s Stage) bool {
	for _, known := range pipeline {
		if known == s {
			return true
		}
	}
	return false
}

// Lookup resolves a user-entered token to a pipeline stage.
func Lookup(token string) (Stage, bool) {
	candidate := Stage(token)
	if Valid(candidate) {
		return candidate, true
	}
	return "", false
}
