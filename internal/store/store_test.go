package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/stage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chargen.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStageConfigRoundTrip(t *testing.T) {
	s := openStore(t)
	if err := s.SaveStageConfig(stage.Background, "simple", []byte("version: 1\n")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Upsert replaces the implementation for the same stage.
	if err := s.SaveStageConfig(stage.Background, "costed", []byte("version: 1\nfields:\n  fee: \"25\"\n")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	configs, err := s.StageConfigs()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected one row, got %d", len(configs))
	}
	if configs[0].Stage != stage.Background || configs[0].Impl != "costed" {
		t.Fatalf("row = %+v", configs[0])
	}
}

func TestApplicationRoundTrip(t *testing.T) {
	s := openStore(t)
	rec := application.New("greil")
	rec.SetCurrentStage(stage.Attributes)
	rec.MarkComplete(stage.Species)
	rec.SetSelection(stage.Species, application.Selection{"species": "veldrin"})
	if err := s.SaveApplication(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadApplication(rec.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Account != "greil" || !loaded.IsComplete(stage.Species) {
		t.Fatalf("loaded = %+v", loaded.Snapshot())
	}
	if name, _ := loaded.Selection(stage.Species).String("species"); name != "veldrin" {
		t.Fatalf("species = %q", name)
	}
	if _, err := s.LoadApplication("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: %v", err)
	}
}

func TestDeleteApplication(t *testing.T) {
	s := openStore(t)
	rec := application.New("greil")
	if err := s.SaveApplication(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeleteApplication(rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadApplication(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted application still loads: %v", err)
	}
	if err := s.DeleteApplication(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestInProgressApplicationLookup(t *testing.T) {
	s := openStore(t)
	if _, err := s.InProgressApplication("greil"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store: %v", err)
	}
	rec := application.New("greil")
	if err := s.SaveApplication(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	found, err := s.InProgressApplication("greil")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != rec.ID {
		t.Fatalf("found %s, want %s", found.ID, rec.ID)
	}
}

func TestDecideTransitions(t *testing.T) {
	s := openStore(t)
	rec := application.New("greil")
	if err := s.SaveApplication(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	// In-progress applications cannot be decided.
	if err := s.Decide(rec.ID, true); err == nil {
		t.Fatal("expected state error for undecided application")
	}
	rec.State = application.StateSubmitted
	if err := s.SaveApplication(rec); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if err := s.Decide(rec.ID, true); err != nil {
		t.Fatalf("decide: %v", err)
	}
	loaded, err := s.LoadApplication(rec.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.State != application.StateApproved {
		t.Fatalf("state = %s", loaded.State)
	}
}

func TestLedgerQueries(t *testing.T) {
	s := openStore(t)
	if err := s.EnsureAccount("greil", 2); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	if err := s.SetBalance("greil", resource.Coin, 100); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if got, err := s.Balance("greil", resource.Coin); err != nil || got != 100 {
		t.Fatalf("coin balance = %d, %v", got, err)
	}
	if got, err := s.Balance("greil", resource.Karma); err != nil || got != 0 {
		t.Fatalf("unset balance = %d, %v", got, err)
	}
	if got, err := s.ApplicationLimit("greil"); err != nil || got != 2 {
		t.Fatalf("limit = %d, %v", got, err)
	}
	if got, err := s.ApplicationLimit("stranger"); err != nil || got != 1 {
		t.Fatalf("default limit = %d, %v", got, err)
	}

	inFlight := application.New("greil")
	if err := s.SaveApplication(inFlight); err != nil {
		t.Fatalf("save: %v", err)
	}
	rejected := application.New("greil")
	rejected.State = application.StateRejected
	if err := s.SaveApplication(rejected); err != nil {
		t.Fatalf("save rejected: %v", err)
	}
	count, err := s.ActiveApplications("greil")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("active count = %d, want 1 (rejected must not count)", count)
	}
}
