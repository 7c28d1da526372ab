package strategies

import (
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// blurbOf pulls the shared blurb field out of whatever implementation was
// active before a swap. Every built-in implementation carries one, so
// migrations never lose the operator's flavour text.
func blurbOf(old strategy.Strategy) (string, bool) {
	switch s := old.(type) {
	case *SpeciesMenu:
		return s.blurb, true
	case *SpeciesDestined:
		return s.blurb, true
	case *PointBuy:
		return s.blurb, true
	case *Sculpt:
		return s.blurb, true
	case *CultureName:
		return s.blurb, true
	case *BackgroundSimple:
		return s.blurb, true
	case *BackgroundCosted:
		return s.blurb, true
	case *GearKits:
		return s.blurb, true
	}
	return "", false
}

// carryBlurb builds the blob a migrator hands to a fresh constructor: the old
// implementation's blurb when one exists, everything else left at defaults.
func carryBlurb(old strategy.Strategy) strategy.Blob {
	b := strategy.NewBlob()
	if blurb, ok := blurbOf(old); ok {
		b.Set("blurb", blurb)
	}
	return b
}

// RegisterDefaults installs the built-in implementations for every stage.
// Each entry's migrator is total: unattended swaps carry the blurb across and
// reset every other field to the incoming implementation's defaults.
func RegisterDefaults(reg *strategy.Registry, provider *content.Provider) error {
	entries := []strategy.Entry{
		{
			Stage:   stage.Species,
			Name:    "menu",
			Summary: "pick a species from the world list",
			Help:    "Numbered species menu with per-species karma costs.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newSpeciesMenu(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newSpeciesMenu(provider, carryBlurb(old))
			},
		},
		{
			Stage:   stage.Species,
			Name:    "destined",
			Summary: "random species with limited rerolls",
			Help:    "Rolls a species at session start; a few rerolls, no cost.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newSpeciesDestined(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newSpeciesDestined(provider, carryBlurb(old))
			},
		},
		{
			Stage:   stage.Attributes,
			Name:    "pointbuy",
			Summary: "boost attributes against a karma formula",
			Help:    "Boost counts feed the configured formula per attribute.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newPointBuy(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newPointBuy(provider, carryBlurb(old))
			},
		},
		{
			Stage:   stage.Body,
			Name:    "sculpt",
			Summary: "phase-by-phase body customisation",
			Help:    "Walks remove, replace, scars and markings for the chosen species.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newSculpt(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newSculpt(provider, carryBlurb(old))
			},
		},
		{
			Stage:   stage.Name,
			Name:    "culture",
			Summary: "culture-flavoured name suggestions",
			Help:    "Suggests names from the species' cultures, or validates a typed one.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newCultureName(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newCultureName(provider, carryBlurb(old))
			},
		},
		{
			Stage:   stage.Background,
			Name:    "simple",
			Summary: "free-text background story",
			Help:    "Multi-line story capture at no cost.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newBackgroundSimple(blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newBackgroundSimple(carryBlurb(old))
			},
		},
		{
			Stage:   stage.Background,
			Name:    "costed",
			Summary: "background story with a per-line scribe fee",
			Help:    "Same capture as simple, but a formula over line count charges coin.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newBackgroundCosted(blob)
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				// The default fee expression is a constant, so construction
				// cannot fail when the blob carries no fee override.
				s, err := newBackgroundCosted(carryBlurb(old))
				if err != nil {
					return nil
				}
				return s
			},
		},
		{
			Stage:   stage.Gear,
			Name:    "kits",
			Summary: "flat-priced starting gear bundles",
			Help:    "One kit per application, priced in coin.",
			Rehydrate: func(blob strategy.Blob) (strategy.Strategy, error) {
				return newGearKits(provider, blob), nil
			},
			Migrate: func(old strategy.Strategy) strategy.Strategy {
				return newGearKits(provider, carryBlurb(old))
			},
		},
	}
	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// ActivateDefaults puts the first registered implementation into service
// for every stage that has none. Stages restored from persisted
// configuration are left alone.
func ActivateDefaults(reg *strategy.Registry) error {
	for _, s := range stage.All() {
		if _, ok := reg.Active(s); ok {
			continue
		}
		names := reg.Names(s)
		if len(names) == 0 {
			continue
		}
		if err := reg.Activate(s, names[0], strategy.NewBlob()); err != nil {
			return err
		}
	}
	return nil
}
