// Package formula evaluates named parametric integer expressions used for
// resource costs. Expressions use Go syntax ("base * boosts * boosts") and
// are interpreted with yaegi; free variables are bound per evaluation.
package formula

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
)

// Formula is a validated, named arithmetic expression over integer variables.
type Formula struct {
	Name string
	Expr string
}

// Compile validates the expression syntax up front so malformed formulas
// surface at configuration load time rather than at first cost query.
func Compile(name, expr string) (*Formula, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("formula %s: expression is empty", name)
	}
	i := interp.New(interp.Options{})
	if _, err := i.Compile(trimmed); err != nil {
		return nil, fmt.Errorf("formula %s: %w", name, err)
	}
	return &Formula{Name: name, Expr: trimmed}, nil
}

// Eval binds vars and evaluates the expression to an integer. A fresh
// interpreter is used per call: evaluations never observe each other's
// bindings. Variables are declared in sorted order so failures reproduce.
func (f *Formula) Eval(vars map[string]int) (int, error) {
	i := interp.New(interp.Options{})
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := i.Eval(fmt.Sprintf("%s := %d", name, vars[name])); err != nil {
			return 0, fmt.Errorf("formula %s: bind %s: %w", f.Name, name, err)
		}
	}
	value, err := i.Eval(f.Expr)
	if err != nil {
		return 0, fmt.Errorf("formula %s: %w", f.Name, err)
	}
	if !value.IsValid() || !value.CanInt() {
		return 0, fmt.Errorf("formula %s: expression did not yield an integer", f.Name)
	}
	return int(value.Int()), nil
}

// Registry holds compiled formulas by name. Lookups are read-mostly; the
// content reloader replaces entries wholesale under the write lock.
type Registry struct {
	mu       sync.RWMutex
	formulas map[string]*Formula
}

// NewRegistry returns an empty formula registry.
func NewRegistry() *Registry {
	return &Registry{formulas: map[string]*Formula{}}
}

// Add compiles and stores a formula, replacing any previous definition.
func (r *Registry) Add(name, expr string) error {
	f, err := Compile(name, expr)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formulas[name] = f
	return nil
}

// Lookup returns the formula registered under name.
func (r *Registry) Lookup(name string) (*Formula, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formulas[name]
	return f, ok
}

// Names returns the registered formula names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formulas))
	for name := range r.formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
