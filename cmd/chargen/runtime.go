package main

import (
	"fmt"

	"github.com/mistvale/chargen/internal/config"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/logbook"
	"github.com/mistvale/chargen/internal/store"
	"github.com/mistvale/chargen/internal/strategies"
	"github.com/mistvale/chargen/internal/strategy"
)

// runtime bundles the collaborators every subcommand needs.
type runtime struct {
	cfg      *config.Config
	store    *store.Store
	provider *content.Provider
	registry *strategy.Registry
	journal  *logbook.Journal
}

// loadRuntime boots the shared state: settings, journal, content, store,
// and the strategy registry restored to its persisted configuration. A
// malformed blob or a row naming an unknown implementation is fatal.
func loadRuntime(root string) (*runtime, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	journal, err := logbook.Open(cfg.JournalPath())
	if err != nil {
		return nil, err
	}
	provider, err := content.NewProvider(cfg.ContentPath(), content.WithLogger(journal))
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	reg := strategy.NewRegistry()
	if err := strategies.RegisterDefaults(reg, provider); err != nil {
		st.Close()
		return nil, err
	}
	if err := restoreStageConfigs(reg, st); err != nil {
		st.Close()
		return nil, err
	}
	if err := strategies.ActivateDefaults(reg); err != nil {
		st.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, store: st, provider: provider, registry: reg, journal: journal}, nil
}

func (rt *runtime) close() {
	if rt.store != nil {
		_ = rt.store.Close()
	}
}

func restoreStageConfigs(reg *strategy.Registry, st *store.Store) error {
	rows, err := st.StageConfigs()
	if err != nil {
		return err
	}
	for _, row := range rows {
		blob, err := strategy.DecodeBlob(row.Blob)
		if err != nil {
			return fmt.Errorf("stage config %s/%s: %w", row.Stage, row.Impl, err)
		}
		if err := reg.Activate(row.Stage, row.Impl, blob); err != nil {
			return fmt.Errorf("stage config %s/%s: %w", row.Stage, row.Impl, err)
		}
	}
	return nil
}
