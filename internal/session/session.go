// Package session defines the line-oriented interaction contract strategies
// implement, plus the reusable sub-machines (modal text capture and nested
// phase flows) several strategies host inside a single session.
package session

// Session is a live, resumable interaction bound to one in-progress
// application stage.
//
// Render is pure: it may be called any number of times without changing
// state. Submit consumes one line of input, may mutate internal state and
// the application's per-stage payload, and returns the text to show the
// user. Submitting an empty line is always safe and re-renders.
//
// Once Done reports true the outer driver marks the stage complete and the
// session is discarded; Submit is never called again.
type Session interface {
	Render() string
	Submit(line string) string
	Done() bool
}
