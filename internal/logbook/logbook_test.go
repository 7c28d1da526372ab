package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentEntriesAndTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.log")
	journal, err := Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	for i := 0; i < 5; i++ {
		journal.Info("stage species completed by run-%d", i)
	}
	lines, total := journal.Tail(3)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"run-2", "run-3", "run-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var journal *Journal
	journal.Info("dropped on the floor")
	if lines, total := journal.Tail(10); lines != nil || total != 0 {
		t.Fatalf("nil journal returned %v/%d", lines, total)
	}
	if journal.Path() != "" {
		t.Fatal("nil journal has a path")
	}
}
