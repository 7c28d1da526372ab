package strategy

import (
	"fmt"
	"sync"

	"github.com/mistvale/chargen/internal/stage"
)

// Rehydrator turns a stored configuration blob into a live instance.
type Rehydrator func(Blob) (Strategy, error)

// Migrator builds a new instance of its own implementation from a live
// instance of a different implementation for the same stage, carrying over
// semantically compatible fields. Migrators must be total: they type-switch
// on the foreign instance and return a default-constructed instance when
// nothing matches. A nil return is treated as "no fields carried over".
type Migrator func(old Strategy) Strategy

// Entry describes one registered implementation for one stage.
type Entry struct {
	Stage     stage.Stage
	Name      string
	Summary   string
	Help      string
	Rehydrate Rehydrator
	Migrate   Migrator
}

func (e Entry) validate() error {
	if !stage.Valid(e.Stage) {
		return fmt.Errorf("strategy: entry %q targets unknown stage %q", e.Name, e.Stage)
	}
	if e.Name == "" {
		return fmt.Errorf("strategy: entry for stage %s has no name", e.Stage)
	}
	if e.Summary == "" {
		return fmt.Errorf("strategy: %s/%s has no summary", e.Stage, e.Name)
	}
	if e.Rehydrate == nil {
		return fmt.Errorf("strategy: %s/%s has no rehydrator", e.Stage, e.Name)
	}
	return nil
}

// Registry is the process-wide catalog of implementations plus the currently
// active instance per stage. Registration happens at boot; swaps are rare
// administrator actions. Reads vastly outnumber writes, so a single RWMutex
// guards both maps. Sessions created from an instance keep that instance:
// Swap replaces the registry's pointer, never the old value.
type Registry struct {
	mu      sync.RWMutex
	entries map[stage.Stage]map[string]Entry
	order   map[stage.Stage][]string
	active  map[stage.Stage]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: map[stage.Stage]map[string]Entry{},
		order:   map[stage.Stage][]string{},
		active:  map[stage.Stage]Strategy{},
	}
}

// Register installs an implementation. The catalog is append-only: a
// duplicate (stage, name) pair is an error.
func (r *Registry) Register(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byName := r.entries[e.Stage]
	if byName == nil {
		byName = map[string]Entry{}
		r.entries[e.Stage] = byName
	}
	if _, exists := byName[e.Name]; exists {
		return fmt.Errorf("strategy: %s/%s already registered", e.Stage, e.Name)
	}
	byName[e.Name] = e
	r.order[e.Stage] = append(r.order[e.Stage], e.Name)
	return nil
}

// MustRegister panics if registration fails. Used for the compiled-in
// implementation set at boot.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Entry looks up one implementation's catalog entry.
func (r *Registry) Entry(s stage.Stage, name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[s][name]
	return e, ok
}

// Names returns the implementation names registered for a stage, in
// registration order.
func (r *Registry) Names(s stage.Stage) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order[s]...)
}

// Instantiate rehydrates an implementation from a stored blob without
// touching the active set.
func (r *Registry) Instantiate(s stage.Stage, name string, blob Blob) (Strategy, error) {
	e, ok := r.Entry(s, name)
	if !ok {
		return nil, fmt.Errorf("strategy: no implementation %s/%s", s, name)
	}
	inst, err := e.Rehydrate(blob)
	if err != nil {
		return nil, fmt.Errorf("strategy: rehydrate %s/%s: %w", s, name, err)
	}
	if err := inst.Info().Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Activate rehydrates and installs the active instance for a stage. Called
// at boot while loading stored configuration.
func (r *Registry) Activate(s stage.Stage, name string, blob Blob) error {
	inst, err := r.Instantiate(s, name, blob)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[s] = inst
	return nil
}

// Active returns the currently active instance for a stage.
func (r *Registry) Active(s stage.Stage) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.active[s]
	return inst, ok
}

// ActiveAll returns the active instances for the given stages, skipping
// stages with no configured implementation.
func (r *Registry) ActiveAll(stages []stage.Stage) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(stages))
	for _, s := range stages {
		if inst, ok := r.active[s]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// Swap replaces the active implementation for a stage with name, migrating
// configuration best-effort from the old instance. If the new entry has a
// migrator it receives the old instance (possibly of a foreign type) and may
// carry over compatible fields; otherwise, or when the migrator declines,
// the instance starts from its fresh defaults. Swap never fails because of
// the old instance's type.
func (r *Registry) Swap(s stage.Stage, name string) (Strategy, error) {
	e, ok := r.Entry(s, name)
	if !ok {
		return nil, fmt.Errorf("strategy: no implementation %s/%s", s, name)
	}
	fresh, err := e.Rehydrate(NewBlob())
	if err != nil {
		return nil, fmt.Errorf("strategy: construct %s/%s: %w", s, name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := fresh
	if old, exists := r.active[s]; exists && e.Migrate != nil {
		if migrated := e.Migrate(old); migrated != nil {
			next = migrated
		}
	}
	r.active[s] = next
	return next, nil
}
