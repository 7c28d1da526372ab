package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func submitLine(t *testing.T, c Console, line string) Console {
	t.Helper()
	c.input.SetValue(line)
	next, _ := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	out, ok := next.(Console)
	if !ok {
		t.Fatalf("update returned %T", next)
	}
	return out
}

func TestEnterRoutesLineToHandler(t *testing.T) {
	var got string
	c := NewConsole("test", func(line string) string {
		got = line
		return "reply to " + line
	}, "welcome")

	c = submitLine(t, c, "hello there")
	if got != "hello there" {
		t.Fatalf("handler got %q", got)
	}
	transcript := strings.Join(c.Transcript(), "\n")
	if !strings.Contains(transcript, "welcome") || !strings.Contains(transcript, "reply to hello there") {
		t.Fatalf("transcript:\n%s", transcript)
	}
	if c.input.Value() != "" {
		t.Fatalf("input not cleared: %q", c.input.Value())
	}
}

func TestQuitWordLeavesWithoutCallingHandler(t *testing.T) {
	called := false
	c := NewConsole("test", func(string) string {
		called = true
		return ""
	}, "")
	c.input.SetValue("quit")
	next, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if called {
		t.Fatal("quit reached the handler")
	}
	if cmd == nil {
		t.Fatal("quit did not produce a command")
	}
	if out := next.(Console); !out.quitting {
		t.Fatal("quit did not mark the model")
	}
}

func TestTranscriptIsBounded(t *testing.T) {
	c := NewConsole("test", func(line string) string { return line }, "")
	for i := 0; i < transcriptLimit+50; i++ {
		c = submitLine(t, c, "line")
	}
	if len(c.Transcript()) > transcriptLimit {
		t.Fatalf("transcript grew to %d", len(c.Transcript()))
	}
}
