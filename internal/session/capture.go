package session

import (
	"fmt"
	"strings"
)

const (
	// CaptureTerminator ends a capture and fires the completion callback.
	CaptureTerminator = "."
	// CaptureAbort cancels a capture and fires the cancellation callback.
	CaptureAbort = "@abort"
)

// Capture is a modal free-text sub-session: it takes over input handling
// until the terminator line is seen, then invokes the completion callback
// with the captured text, or the cancellation callback if aborted. A capture
// is one-shot; after either callback fires it reports Done.
type Capture struct {
	prompt   string
	lines    []string
	done     bool
	onDone   func(text string) string
	onCancel func() string
}

// NewCapture builds a capture session. onDone receives the joined text and
// returns the text to show the user; onCancel likewise. Nil callbacks are
// replaced with quiet defaults.
func NewCapture(prompt string, onDone func(string) string, onCancel func() string) *Capture {
	if onDone == nil {
		onDone = func(string) string { return "Done." }
	}
	if onCancel == nil {
		onCancel = func() string { return "Cancelled." }
	}
	return &Capture{prompt: prompt, onDone: onDone, onCancel: onCancel}
}

// Render shows the prompt, the lines entered so far, and the control keys.
func (c *Capture) Render() string {
	var b strings.Builder
	b.WriteString(c.prompt)
	b.WriteString("\n")
	if len(c.lines) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(c.lines, "\n"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nEnter %q on its own line to finish, %q to cancel.\n", CaptureTerminator, CaptureAbort)
	return b.String()
}

// Submit appends a line, or finishes/cancels on the control tokens.
func (c *Capture) Submit(line string) string {
	if c.done {
		return c.Render()
	}
	switch strings.TrimSpace(line) {
	case CaptureTerminator:
		c.done = true
		return c.onDone(strings.Join(c.lines, "\n"))
	case CaptureAbort:
		c.done = true
		return c.onCancel()
	case "":
		if line == "" {
			return c.Render()
		}
	}
	c.lines = append(c.lines, line)
	return fmt.Sprintf("[%d] %s", len(c.lines), line)
}

// Done reports whether a callback has fired.
func (c *Capture) Done() bool { return c.done }
