// Package config owns the .chargen data directory: settings, the content
// library, the application store and the journal all live under it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ChargenDir is the data directory created next to the server.
	ChargenDir = ".chargen"

	settingsFile = "settings.yaml"
)

const defaultSettingsYAML = `# chargen settings
version: 1

# Content library, relative to this directory.
content: content/library.yaml

# HTTP endpoint for the approval workflow.
approvals:
  enabled: true
  host: 127.0.0.1
  port: 8471

# Seconds a destructive admin action stays confirmable.
proposal_ttl: 120
`

// defaultLibraryYAML is the starter world content written on init. Admins
// edit it in place; the provider hot-reloads.
const defaultLibraryYAML = `# chargen content library
species:
  - id: veldrin
    name: Veldrin
    blurb: Fen-born wanderers with a talent for going unnoticed.
    cultures: [fenway]
  - id: korrath
    name: Korrath
    blurb: Mountain-bred and heavy-handed. The horns are not decorative.
    karma: 50
    cultures: [fenway, duskhold]
  - id: sylith
    name: Sylith
    blurb: Glasswing traders from the southern reaches.
    karma: 25
    cultures: [duskhold]

cultures:
  - id: fenway
    prefixes: [Mar, Vel, Tor, Bren]
    suffixes: [in, eth, ak, ola]
  - id: duskhold
    prefixes: [Ka, Dre, Vol]
    suffixes: [rath, mir, dun]

parts:
  - id: tail
    name: Vestigial tail
    detail: Most veldrin lose it young. Yours stayed.
    phase: remove
    species: [veldrin]
  - id: dewclaws
    name: Dewclaws
    phase: remove
    species: [veldrin, korrath]
  - id: horns
    name: Ridged horns
    detail: Heavier than they look.
    phase: replace
    species: [korrath]
  - id: glasswings
    name: Glasswings
    detail: Ornamental. Mostly.
    phase: replace
    species: [sylith]
  - id: brand
    name: Old brand
    detail: A story you may not want to tell.
    phase: scars
  - id: riverline
    name: Riverline tattoo
    phase: markings
    species: [veldrin]
  - id: duskmark
    name: Duskmark
    phase: markings
    species: [korrath, sylith]

kits:
  - id: wanderer
    name: Wanderer's kit
    detail: Bedroll, flint, a week of hardtack.
    coin: 40
  - id: scribe
    name: Scribe's kit
    detail: Ink, vellum, a dull knife for mistakes.
    coin: 60
  - id: sellsword
    name: Sellsword's kit
    detail: A short blade and a shorter temper.
    coin: 90

boosts:
  - attribute: might
    base: 10
  - attribute: wit
    base: 12
  - attribute: grace
    base: 10
  - attribute: resolve
    base: 8

formulas:
  - name: boost-cost
    expr: base * boosts * boosts
`

// ApprovalsSettings configures the review-workflow HTTP server.
type ApprovalsSettings struct {
	Enabled *bool  `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Settings models settings.yaml.
type Settings struct {
	Version     int               `yaml:"version"`
	Content     string            `yaml:"content"`
	Approvals   ApprovalsSettings `yaml:"approvals"`
	ProposalTTL int               `yaml:"proposal_ttl"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// Root is the directory the server was started from.
	Root string
	// DataDir is Root/.chargen.
	DataDir string

	Settings Settings
}

// InitDataDir creates the .chargen structure and writes the default
// settings and content library, leaving existing files alone.
//
// .chargen/
// ├── content/   <- YAML library, hot-reloaded
// ├── state/     <- sqlite store
// ├── logs/      <- application journal
// └── settings.yaml
func InitDataDir(root string) error {
	dataDir := filepath.Join(root, ChargenDir)
	for _, dir := range []string{
		filepath.Join(dataDir, "content"),
		filepath.Join(dataDir, "state"),
		filepath.Join(dataDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := writeIfMissing(filepath.Join(dataDir, settingsFile), defaultSettingsYAML); err != nil {
		return err
	}
	return writeIfMissing(filepath.Join(dataDir, "content", "library.yaml"), defaultLibraryYAML)
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Load reads settings from root/.chargen. A missing data directory is an
// error; 'chargen init' creates it.
func Load(root string) (*Config, error) {
	dataDir := filepath.Join(root, ChargenDir)
	if _, err := os.Stat(dataDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s does not exist; run 'chargen init' first", dataDir)
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{Root: root, DataDir: dataDir, Settings: defaultSettings()}
	path := filepath.Join(dataDir, settingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	cfg.Settings = parsed
	return cfg, nil
}

func defaultSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if strings.TrimSpace(s.Content) == "" {
		s.Content = filepath.Join("content", "library.yaml")
	}
	if s.Approvals.Host == "" {
		s.Approvals.Host = "127.0.0.1"
	}
	if s.Approvals.Port == 0 {
		s.Approvals.Port = 8471
	}
	if s.ProposalTTL <= 0 {
		s.ProposalTTL = 120
	}
}

// ApprovalsEnabled reports whether the approvals server should run.
func (c *Config) ApprovalsEnabled() bool {
	if c.Settings.Approvals.Enabled == nil {
		return true
	}
	return *c.Settings.Approvals.Enabled
}

// ProposalTTL returns the admin confirmation window.
func (c *Config) ProposalTTL() time.Duration {
	return time.Duration(c.Settings.ProposalTTL) * time.Second
}

// ContentPath returns the content library location.
func (c *Config) ContentPath() string {
	if filepath.IsAbs(c.Settings.Content) {
		return c.Settings.Content
	}
	return filepath.Join(c.DataDir, c.Settings.Content)
}

// StorePath returns the sqlite database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "state", "chargen.db")
}

// JournalPath returns the application journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "logs", "application.log")
}

// SettingsPath returns the on-disk location of settings.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, settingsFile)
}
