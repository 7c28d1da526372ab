// Package content loads the game-facing selection tables (species, body
// parts, name cultures, gear kits, boost pricing, cost formulas) from YAML
// and serves read-only snapshots to strategies.
package content

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mistvale/chargen/internal/formula"
)

// Phase names for body-part eligibility. These are the body-sculpt
// strategy's private sub-stages, not pipeline stages.
const (
	PhaseRemove   = "remove"
	PhaseReplace  = "replace"
	PhaseScars    = "scars"
	PhaseMarkings = "markings"
)

// Species is one playable lineage.
type Species struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Blurb    string   `yaml:"blurb,omitempty"`
	Karma    int      `yaml:"karma,omitempty"` // entry cost for rare lineages
	Cultures []string `yaml:"cultures,omitempty"`
}

// BodyPart is one option inside a body-sculpt phase. An empty species list
// means every species is eligible.
type BodyPart struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Detail  string   `yaml:"detail,omitempty"`
	Phase   string   `yaml:"phase"`
	Species []string `yaml:"species,omitempty"`
}

// Culture provides the name-generation rules for one naming tradition.
type Culture struct {
	ID       string   `yaml:"id"`
	Prefixes []string `yaml:"prefixes"`
	Suffixes []string `yaml:"suffixes"`
}

// Kit is a purchasable starting-gear bundle.
type Kit struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Detail string `yaml:"detail,omitempty"`
	Coin   int    `yaml:"coin"`
}

// Boost prices one attribute's repeatable boost.
type Boost struct {
	Attribute string `yaml:"attribute"`
	Base      int    `yaml:"base"`
}

// FormulaDef is a named cost expression referenced by strategies.
type FormulaDef struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Library is the full content tree as stored on disk.
type Library struct {
	Species  []Species    `yaml:"species"`
	Parts    []BodyPart   `yaml:"parts,omitempty"`
	Cultures []Culture    `yaml:"cultures,omitempty"`
	Kits     []Kit        `yaml:"kits,omitempty"`
	Boosts   []Boost      `yaml:"boosts,omitempty"`
	Formulas []FormulaDef `yaml:"formulas,omitempty"`
}

// Validate checks identifier uniqueness and cross-references. Content errors
// are configuration load errors: fatal, never partially recovered.
func (lib *Library) Validate() error {
	if len(lib.Species) == 0 {
		return fmt.Errorf("content: at least one species is required")
	}
	speciesIDs := map[string]bool{}
	for _, sp := range lib.Species {
		if sp.ID == "" || sp.Name == "" {
			return fmt.Errorf("content: species needs id and name, got %+v", sp)
		}
		if speciesIDs[sp.ID] {
			return fmt.Errorf("content: duplicate species %s", sp.ID)
		}
		speciesIDs[sp.ID] = true
	}
	cultureIDs := map[string]bool{}
	for _, c := range lib.Cultures {
		if c.ID == "" {
			return fmt.Errorf("content: culture needs an id")
		}
		if cultureIDs[c.ID] {
			return fmt.Errorf("content: duplicate culture %s", c.ID)
		}
		if len(c.Prefixes) == 0 || len(c.Suffixes) == 0 {
			return fmt.Errorf("content: culture %s needs prefixes and suffixes", c.ID)
		}
		cultureIDs[c.ID] = true
	}
	for _, sp := range lib.Species {
		for _, cid := range sp.Cultures {
			if !cultureIDs[cid] {
				return fmt.Errorf("content: species %s references unknown culture %s", sp.ID, cid)
			}
		}
	}
	validPhases := map[string]bool{PhaseRemove: true, PhaseReplace: true, PhaseScars: true, PhaseMarkings: true}
	partIDs := map[string]bool{}
	for _, part := range lib.Parts {
		if part.ID == "" || part.Name == "" {
			return fmt.Errorf("content: body part needs id and name, got %+v", part)
		}
		if partIDs[part.ID] {
			return fmt.Errorf("content: duplicate body part %s", part.ID)
		}
		partIDs[part.ID] = true
		if !validPhases[part.Phase] {
			return fmt.Errorf("content: body part %s has unknown phase %q", part.ID, part.Phase)
		}
		for _, spID := range part.Species {
			if !speciesIDs[spID] {
				return fmt.Errorf("content: body part %s references unknown species %s", part.ID, spID)
			}
		}
	}
	kitIDs := map[string]bool{}
	for _, kit := range lib.Kits {
		if kit.ID == "" || kit.Name == "" {
			return fmt.Errorf("content: kit needs id and name, got %+v", kit)
		}
		if kitIDs[kit.ID] {
			return fmt.Errorf("content: duplicate kit %s", kit.ID)
		}
		if kit.Coin < 0 {
			return fmt.Errorf("content: kit %s has negative cost", kit.ID)
		}
		kitIDs[kit.ID] = true
	}
	seenBoost := map[string]bool{}
	for _, boost := range lib.Boosts {
		if boost.Attribute == "" {
			return fmt.Errorf("content: boost entry needs an attribute")
		}
		if seenBoost[boost.Attribute] {
			return fmt.Errorf("content: duplicate boost pricing for %s", boost.Attribute)
		}
		if boost.Base < 0 {
			return fmt.Errorf("content: boost base for %s is negative", boost.Attribute)
		}
		seenBoost[boost.Attribute] = true
	}
	return nil
}

// SpeciesByID finds a species.
func (lib *Library) SpeciesByID(id string) (Species, bool) {
	for _, sp := range lib.Species {
		if sp.ID == id {
			return sp, true
		}
	}
	return Species{}, false
}

// CultureByID finds a naming culture.
func (lib *Library) CultureByID(id string) (Culture, bool) {
	for _, c := range lib.Cultures {
		if c.ID == id {
			return c, true
		}
	}
	return Culture{}, false
}

// KitByID finds a gear kit.
func (lib *Library) KitByID(id string) (Kit, bool) {
	for _, kit := range lib.Kits {
		if kit.ID == id {
			return kit, true
		}
	}
	return Kit{}, false
}

// PartsFor lists the body parts eligible for a species in one phase, in
// declaration order.
func (lib *Library) PartsFor(phase, speciesID string) []BodyPart {
	var out []BodyPart
	for _, part := range lib.Parts {
		if part.Phase != phase {
			continue
		}
		if len(part.Species) == 0 {
			out = append(out, part)
			continue
		}
		for _, spID := range part.Species {
			if spID == speciesID {
				out = append(out, part)
				break
			}
		}
	}
	return out
}

// BoostBase returns the base boost price for an attribute.
func (lib *Library) BoostBase(attribute string) (int, bool) {
	for _, boost := range lib.Boosts {
		if boost.Attribute == attribute {
			return boost.Base, true
		}
	}
	return 0, false
}

// Attributes lists the boostable attributes in declaration order.
func (lib *Library) Attributes() []string {
	out := make([]string, 0, len(lib.Boosts))
	for _, boost := range lib.Boosts {
		out = append(out, boost.Attribute)
	}
	return out
}

// Parse decodes and validates a library document.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("content: parse library: %w", err)
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Load reads and validates a library file, and compiles its formulas into a
// fresh registry so malformed expressions fail here, at load time.
func Load(path string) (*Library, *formula.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("content: %s: %w", path, err)
	}
	formulas := formula.NewRegistry()
	for _, def := range lib.Formulas {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("content: %s: formula with empty name", path)
		}
		if err := formulas.Add(name, def.Expr); err != nil {
			return nil, nil, fmt.Errorf("content: %s: %w", path, err)
		}
	}
	return lib, formulas, nil
}
