// Package strategy defines the pluggable per-stage algorithm contract and
// the process-wide registry of interchangeable implementations.
package strategy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
)

// BlobVersion is the schema version stamped into every serialized strategy
// configuration.
const BlobVersion = 1

// Info carries the human-readable metadata for one implementation.
type Info struct {
	Name    string
	Summary string
	Help    string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("strategy: implementation name is required")
	}
	if i.Summary == "" {
		return fmt.Errorf("strategy %s: summary is required", i.Name)
	}
	return nil
}

// Field documents one administrator-settable parameter.
type Field struct {
	Name  string
	Usage string
}

// Strategy is one configured algorithm bound to one stage. Implementations
// are mutated only through Set (administrator commands) and replaced
// wholesale on an implementation swap; sessions hold the instance they were
// created with even if an administrator swaps it mid-flight.
type Strategy interface {
	// Stage returns the pipeline stage this instance governs.
	Stage() stage.Stage
	// Info returns the implementation metadata.
	Info() Info
	// CurrentCosts reports what this stage would cost the applicant right
	// now, given the application's live selections. May be empty.
	CurrentCosts(rec *application.Record) []resource.Cost
	// Marshal serializes the instance's configuration to a storage blob.
	Marshal() (Blob, error)
	// NewSession creates a live interaction bound to the application.
	NewSession(rec *application.Record) session.Session
	// Set applies one administrator field assignment, returning a
	// confirmation string or an error explaining the rejection. An error
	// means no mutation occurred.
	Set(field, value string) (string, error)
	// Fields lists the parameters Set recognizes.
	Fields() []Field
}

// Blob is the stored-configuration form of a strategy instance: a versioned
// labeled tree of named leaf values. Rehydrate(Marshal(s)) must reproduce an
// instance with identical observable behavior.
type Blob struct {
	Version int            `yaml:"version"`
	Fields  map[string]any `yaml:"fields,omitempty"`
}

// NewBlob returns an empty blob at the current schema version.
func NewBlob() Blob {
	return Blob{Version: BlobVersion, Fields: map[string]any{}}
}

// Encode serializes the blob for storage.
func (b Blob) Encode() ([]byte, error) {
	return yaml.Marshal(b)
}

// DecodeBlob parses a stored blob and checks its schema version. An empty
// payload decodes to an empty current-version blob so fresh installs need no
// seed rows.
func DecodeBlob(data []byte) (Blob, error) {
	if len(data) == 0 {
		return NewBlob(), nil
	}
	var b Blob
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Blob{}, fmt.Errorf("strategy: decode blob: %w", err)
	}
	if b.Version == 0 {
		b.Version = BlobVersion
	}
	if b.Version > BlobVersion {
		return Blob{}, fmt.Errorf("strategy: blob schema version %d is newer than supported %d", b.Version, BlobVersion)
	}
	if b.Fields == nil {
		b.Fields = map[string]any{}
	}
	return b, nil
}

// String reads a string leaf, falling back to def.
func (b Blob) String(key, def string) string {
	if v, ok := b.Fields[key].(string); ok {
		return v
	}
	return def
}

// Int reads an integer leaf, tolerating serialization widening.
func (b Blob) Int(key string, def int) int {
	switch v := b.Fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Set writes a leaf value.
func (b Blob) Set(key string, value any) {
	b.Fields[key] = value
}
