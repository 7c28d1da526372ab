package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mistvale/chargen/internal/formula"
)

// Logger is the minimal logging surface the provider needs.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Provider serves copy-on-write snapshots of the content library and
// hot-reloads them when the backing file changes. Strategies and sessions
// read a snapshot once and keep it; an administrator edit never mutates a
// library value already handed out.
type Provider struct {
	path   string
	logger Logger

	mu       sync.RWMutex
	lib      *Library
	formulas *formula.Registry
}

// ProviderOption customizes provider construction.
type ProviderOption func(*Provider)

// WithLogger routes reload diagnostics to a logger.
func WithLogger(l Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider loads the library at path. A load failure here is fatal: the
// engine refuses to start on corrupt content.
func NewProvider(path string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{path: path, logger: nopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	lib, formulas, err := Load(path)
	if err != nil {
		return nil, err
	}
	p.lib = lib
	p.formulas = formulas
	return p, nil
}

// Snapshot returns the current library. The returned value is never mutated
// after being handed out.
func (p *Provider) Snapshot() *Library {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lib
}

// Formulas returns the registry compiled from the current library.
func (p *Provider) Formulas() *formula.Registry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.formulas
}

// Reload re-reads the backing file. On failure the previous snapshot stays
// in service and the error is returned.
func (p *Provider) Reload() error {
	lib, formulas, err := Load(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.lib = lib
	p.formulas = formulas
	p.mu.Unlock()
	return nil
}

// Watch hot-reloads the library whenever its file is rewritten, until the
// context is cancelled. Reload failures are logged and the last good
// snapshot stays live.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content: watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: editors replace files rather than write in place,
	// which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("content: watch %s: %w", filepath.Dir(p.path), err)
	}
	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := p.Reload(); err != nil {
				p.logger.Printf("content: reload rejected, keeping previous library: %v", err)
				continue
			}
			p.logger.Printf("content: reloaded %s", p.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Printf("content: watch error: %v", err)
		}
	}
}
