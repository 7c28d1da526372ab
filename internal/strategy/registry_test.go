package strategy

import (
	"testing"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
)

// stubSession satisfies session.Session for registry-level tests.
type stubSession struct{}

func (stubSession) Render() string            { return "stub" }
func (stubSession) Submit(line string) string { return "stub" }
func (stubSession) Done() bool                { return true }

// simpleStub mimics a minimal implementation with one shared field.
type simpleStub struct {
	blurb string
}

func (s *simpleStub) Stage() stage.Stage { return stage.Background }
func (s *simpleStub) Info() Info {
	return Info{Name: "simple", Summary: "blurb only"}
}
func (s *simpleStub) CurrentCosts(*application.Record) []resource.Cost { return nil }
func (s *simpleStub) Marshal() (Blob, error) {
	b := NewBlob()
	b.Set("blurb", s.blurb)
	return b, nil
}
func (s *simpleStub) NewSession(*application.Record) session.Session { return stubSession{} }
func (s *simpleStub) Set(field, value string) (string, error) {
	s.blurb = value
	return "ok", nil
}
func (s *simpleStub) Fields() []Field { return []Field{{Name: "blurb"}} }

// costedStub adds a fee expression on top of the shared blurb field.
type costedStub struct {
	blurb string
	fee   string
}

func (s *costedStub) Stage() stage.Stage { return stage.Background }
func (s *costedStub) Info() Info {
	return Info{Name: "costed", Summary: "blurb plus fee"}
}
func (s *costedStub) CurrentCosts(*application.Record) []resource.Cost { return nil }
func (s *costedStub) Marshal() (Blob, error) {
	b := NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("fee", s.fee)
	return b, nil
}
func (s *costedStub) NewSession(*application.Record) session.Session { return stubSession{} }
func (s *costedStub) Set(field, value string) (string, error)        { return "ok", nil }
func (s *costedStub) Fields() []Field {
	return []Field{{Name: "blurb"}, {Name: "fee"}}
}

const defaultFee = "25"

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(Entry{
		Stage:   stage.Background,
		Name:    "simple",
		Summary: "blurb only",
		Rehydrate: func(b Blob) (Strategy, error) {
			return &simpleStub{blurb: b.String("blurb", "")}, nil
		},
		Migrate: func(old Strategy) Strategy {
			fresh := &simpleStub{}
			switch prev := old.(type) {
			case *costedStub:
				fresh.blurb = prev.blurb
			}
			return fresh
		},
	})
	reg.MustRegister(Entry{
		Stage:   stage.Background,
		Name:    "costed",
		Summary: "blurb plus fee",
		Rehydrate: func(b Blob) (Strategy, error) {
			return &costedStub{
				blurb: b.String("blurb", ""),
				fee:   b.String("fee", defaultFee),
			}, nil
		},
		Migrate: func(old Strategy) Strategy {
			fresh := &costedStub{fee: defaultFee}
			switch prev := old.(type) {
			case *simpleStub:
				fresh.blurb = prev.blurb
			}
			return fresh
		},
	})
	return reg
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := testRegistry(t)
	err := reg.Register(Entry{
		Stage:     stage.Background,
		Name:      "simple",
		Summary:   "dup",
		Rehydrate: func(Blob) (Strategy, error) { return &simpleStub{}, nil },
	})
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterValidatesEntries(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Entry{Stage: "bogus", Name: "x", Summary: "y",
		Rehydrate: func(Blob) (Strategy, error) { return &simpleStub{}, nil }}); err == nil {
		t.Fatal("expected unknown stage error")
	}
	if err := reg.Register(Entry{Stage: stage.Background, Name: "x", Summary: "y"}); err == nil {
		t.Fatal("expected missing rehydrator error")
	}
}

func TestInstantiateRoundTripsBlob(t *testing.T) {
	reg := testRegistry(t)
	blob := NewBlob()
	blob.Set("blurb", "welcome text")
	inst, err := reg.Instantiate(stage.Background, "simple", blob)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	out, err := inst.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	encoded, err := out.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeBlob(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, err := reg.Instantiate(stage.Background, "simple", decoded)
	if err != nil {
		t.Fatalf("re-instantiate: %v", err)
	}
	if again.(*simpleStub).blurb != "welcome text" {
		t.Fatalf("blurb lost in round trip: %q", again.(*simpleStub).blurb)
	}
}

func TestSwapMigratesCompatibleFields(t *testing.T) {
	reg := testRegistry(t)
	seed := NewBlob()
	seed.Set("blurb", "choose wisely")
	if err := reg.Activate(stage.Background, "simple", seed); err != nil {
		t.Fatalf("activate: %v", err)
	}

	swapped, err := reg.Swap(stage.Background, "costed")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	costed, ok := swapped.(*costedStub)
	if !ok {
		t.Fatalf("active instance is %T, want *costedStub", swapped)
	}
	if costed.blurb != "choose wisely" {
		t.Fatalf("blurb = %q, want migrated value", costed.blurb)
	}
	if costed.fee != defaultFee {
		t.Fatalf("fee = %q, want implementation default %q", costed.fee, defaultFee)
	}
	active, _ := reg.Active(stage.Background)
	if active != swapped {
		t.Fatal("swap did not install the new instance")
	}
}

func TestSwapWithoutActiveInstanceYieldsDefaults(t *testing.T) {
	reg := testRegistry(t)
	swapped, err := reg.Swap(stage.Background, "costed")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	costed := swapped.(*costedStub)
	if costed.blurb != "" || costed.fee != defaultFee {
		t.Fatalf("fresh instance = %+v", costed)
	}
}

func TestMigrationTotalityAcrossAllPairs(t *testing.T) {
	reg := testRegistry(t)
	names := reg.Names(stage.Background)
	for _, oldName := range names {
		for _, newName := range names {
			if err := reg.Activate(stage.Background, oldName, NewBlob()); err != nil {
				t.Fatalf("activate %s: %v", oldName, err)
			}
			inst, err := reg.Swap(stage.Background, newName)
			if err != nil {
				t.Fatalf("swap %s -> %s: %v", oldName, newName, err)
			}
			if inst == nil {
				t.Fatalf("swap %s -> %s returned nil instance", oldName, newName)
			}
			if inst.Info().Name != newName {
				t.Fatalf("swap %s -> %s produced %s", oldName, newName, inst.Info().Name)
			}
		}
	}
}

func TestSessionsKeepTheirInstanceAcrossSwap(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Activate(stage.Background, "simple", NewBlob()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	before, _ := reg.Active(stage.Background)
	if _, err := reg.Swap(stage.Background, "costed"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// The old pointer is untouched; a session holding it is unaffected.
	if _, ok := before.(*simpleStub); !ok {
		t.Fatalf("old instance mutated to %T", before)
	}
	after, _ := reg.Active(stage.Background)
	if _, ok := after.(*costedStub); !ok {
		t.Fatalf("registry still serves %T", after)
	}
}

func TestDecodeBlobVersionChecks(t *testing.T) {
	if _, err := DecodeBlob([]byte("version: 99\n")); err == nil {
		t.Fatal("expected version-too-new error")
	}
	b, err := DecodeBlob(nil)
	if err != nil {
		t.Fatalf("empty payload: %v", err)
	}
	if b.Version != BlobVersion || b.Fields == nil {
		t.Fatalf("empty payload decoded to %+v", b)
	}
}
