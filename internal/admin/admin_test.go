package admin

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

type fakeStrategy struct {
	stg   stage.Stage
	name  string
	motto string
}

func (f *fakeStrategy) Stage() stage.Stage { return f.stg }
func (f *fakeStrategy) Info() strategy.Info {
	return strategy.Info{Name: f.name, Summary: "test double"}
}
func (f *fakeStrategy) CurrentCosts(*application.Record) []resource.Cost { return nil }
func (f *fakeStrategy) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("motto", f.motto)
	return b, nil
}
func (f *fakeStrategy) Set(field, value string) (string, error) {
	if field != "motto" {
		return "", fmt.Errorf("fake: unknown field %q", field)
	}
	f.motto = value
	return "motto updated", nil
}
func (f *fakeStrategy) Fields() []strategy.Field {
	return []strategy.Field{{Name: "motto", Usage: "words to live by"}}
}
func (f *fakeStrategy) NewSession(*application.Record) session.Session { return nil }

func fakeRegistry(t *testing.T) *strategy.Registry {
	t.Helper()
	reg := strategy.NewRegistry()
	for _, name := range []string{"first", "second"} {
		name := name
		err := reg.Register(strategy.Entry{
			Stage:   stage.Species,
			Name:    name,
			Summary: "test double",
			Rehydrate: func(strategy.Blob) (strategy.Strategy, error) {
				return &fakeStrategy{stg: stage.Species, name: name}, nil
			},
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := reg.Activate(stage.Species, "first", strategy.NewBlob()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return reg
}

type fakeConfigStore struct {
	saves []string
}

func (s *fakeConfigStore) SaveStageConfig(st stage.Stage, impl string, blob []byte) error {
	s.saves = append(s.saves, fmt.Sprintf("%s/%s", st, impl))
	return nil
}

type fakePurgingStore struct {
	fakeConfigStore
	deleted []string
	fail    error
}

func (s *fakePurgingStore) DeleteApplication(id string) error {
	if s.fail != nil {
		return s.fail
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// proposalToken pulls the confirmation token out of a swap reply: the word
// after "confirm".
func proposalToken(t *testing.T, reply string) string {
	t.Helper()
	words := strings.Fields(strings.ReplaceAll(reply, "'", " "))
	for i, w := range words {
		if w == "confirm" && i+1 < len(words) {
			return words[i+1]
		}
	}
	t.Fatalf("no token in reply: %q", reply)
	return ""
}

func TestConfirmerFiresOnceWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewConfirmer(time.Minute, WithClock(func() time.Time { return now }))

	fired := 0
	p := c.Propose("do the thing", func() string {
		fired++
		return "done"
	})
	reply, err := c.Confirm(p.Token)
	if err != nil || reply != "done" {
		t.Fatalf("confirm = %q, %v", reply, err)
	}
	if fired != 1 {
		t.Fatalf("fired %d times", fired)
	}
	if _, err := c.Confirm(p.Token); err == nil {
		t.Fatal("second confirm succeeded")
	}
}

func TestConfirmerExpiryIsIdempotentNoOp(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewConfirmer(time.Minute, WithClock(func() time.Time { return now }))

	fired := false
	p := c.Propose("do the thing", func() string {
		fired = true
		return "done"
	})
	now = now.Add(2 * time.Minute)
	if _, err := c.Confirm(p.Token); err == nil {
		t.Fatal("expired proposal confirmed")
	}
	if fired {
		t.Fatal("expired proposal fired its action")
	}
	if pending := c.Pending(); len(pending) != 0 {
		t.Fatalf("expired proposal still pending: %v", pending)
	}
}

func TestProposalExpiryHookFiresOnce(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewConfirmer(time.Minute, WithClock(func() time.Time { return now }))

	expired := 0
	fired := false
	c.ProposeWithExpiry("do the thing", func() string {
		fired = true
		return "done"
	}, func() { expired++ })

	now = now.Add(2 * time.Minute)
	if pending := c.Pending(); len(pending) != 0 {
		t.Fatalf("lapsed proposal still pending: %v", pending)
	}
	if expired != 1 {
		t.Fatalf("expiry hook fired %d times", expired)
	}
	c.Pending()
	if expired != 1 {
		t.Fatalf("expiry hook re-fired: %d", expired)
	}
	if fired {
		t.Fatal("lapsed proposal fired its action")
	}
}

func TestProposalExpiryHookSkippedWhenSettled(t *testing.T) {
	c := NewConfirmer(time.Minute)
	expired := 0
	p := c.ProposeWithExpiry("do the thing", func() string { return "done" }, func() { expired++ })
	if _, err := c.Confirm(p.Token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	q := c.ProposeWithExpiry("other thing", func() string { return "done" }, func() { expired++ })
	if _, err := c.Deny(q.Token); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expiry hook fired for settled proposals: %d", expired)
	}
}

func TestConfirmerDenyDiscards(t *testing.T) {
	c := NewConfirmer(time.Minute)
	fired := false
	p := c.Propose("do the thing", func() string {
		fired = true
		return "done"
	})
	if _, err := c.Deny(p.Token); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if fired {
		t.Fatal("denied proposal fired its action")
	}
	if _, err := c.Confirm(p.Token); err == nil {
		t.Fatal("denied proposal confirmed")
	}
}

func TestConsoleListsAndShows(t *testing.T) {
	reg := fakeRegistry(t)
	console := NewConsole(reg, NewConfirmer(time.Minute), nil, nil)

	if out := console.Handle("stages"); !strings.Contains(out, "species") || !strings.Contains(out, "first") {
		t.Fatalf("stages output:\n%s", out)
	}
	out := console.Handle("impls species")
	if !strings.Contains(out, "* first") || !strings.Contains(out, "  second") {
		t.Fatalf("impls output:\n%s", out)
	}
	if out := console.Handle("show species"); !strings.Contains(out, "motto") {
		t.Fatalf("show output:\n%s", out)
	}
	if out := console.Handle("impls nowhere"); !strings.Contains(out, "not a stage") {
		t.Fatalf("unknown stage output: %q", out)
	}
}

func TestConsoleSetPersistsOnlyOnSuccess(t *testing.T) {
	reg := fakeRegistry(t)
	store := &fakeConfigStore{}
	console := NewConsole(reg, NewConfirmer(time.Minute), store, nil)

	if out := console.Handle("set species motto onward together"); !strings.Contains(out, "updated") {
		t.Fatalf("set reply: %q", out)
	}
	if len(store.saves) != 1 || store.saves[0] != "species/first" {
		t.Fatalf("saves = %v", store.saves)
	}

	if out := console.Handle("set species banner red"); !strings.Contains(out, "unknown field") {
		t.Fatalf("bad set reply: %q", out)
	}
	if len(store.saves) != 1 {
		t.Fatalf("failed set persisted: %v", store.saves)
	}
}

func TestConsoleSwapIsConfirmationGated(t *testing.T) {
	reg := fakeRegistry(t)
	store := &fakeConfigStore{}
	console := NewConsole(reg, NewConfirmer(time.Minute), store, nil)

	out := console.Handle("swap species second")
	if !strings.Contains(out, "confirm ") {
		t.Fatalf("swap did not gate: %q", out)
	}
	if active, _ := reg.Active(stage.Species); active.Info().Name != "first" {
		t.Fatal("swap applied before confirmation")
	}

	token := proposalToken(t, out)
	if out := console.Handle("confirm " + token); !strings.Contains(out, "now runs second") {
		t.Fatalf("confirm reply: %q", out)
	}
	if active, _ := reg.Active(stage.Species); active.Info().Name != "second" {
		t.Fatal("swap did not apply after confirmation")
	}
	if len(store.saves) != 1 || store.saves[0] != "species/second" {
		t.Fatalf("saves = %v", store.saves)
	}
}

func TestConsolePurgeIsConfirmationGated(t *testing.T) {
	reg := fakeRegistry(t)
	store := &fakePurgingStore{}
	console := NewConsole(reg, NewConfirmer(time.Minute), store, nil)

	out := console.Handle("purge app-42")
	if !strings.Contains(out, "confirm ") {
		t.Fatalf("purge did not gate: %q", out)
	}
	if len(store.deleted) != 0 {
		t.Fatal("purge applied before confirmation")
	}

	token := proposalToken(t, out)
	if out := console.Handle("confirm " + token); !strings.Contains(out, "gone") {
		t.Fatalf("confirm reply: %q", out)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "app-42" {
		t.Fatalf("deleted = %v", store.deleted)
	}
}

func TestConsolePurgeNeedsACapableStore(t *testing.T) {
	reg := fakeRegistry(t)
	console := NewConsole(reg, NewConfirmer(time.Minute), &fakeConfigStore{}, nil)

	if out := console.Handle("purge app-42"); !strings.Contains(out, "cannot purge") {
		t.Fatalf("purge reply: %q", out)
	}
}

func TestConsoleDenyLeavesRegistryUntouched(t *testing.T) {
	reg := fakeRegistry(t)
	console := NewConsole(reg, NewConfirmer(time.Minute), nil, nil)

	out := console.Handle("swap species second")
	token := proposalToken(t, out)
	if out := console.Handle("deny " + token); !strings.Contains(out, "Denied") {
		t.Fatalf("deny reply: %q", out)
	}
	if active, _ := reg.Active(stage.Species); active.Info().Name != "first" {
		t.Fatal("denied swap applied anyway")
	}
}
