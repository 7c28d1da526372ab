// Package store persists stage configuration, applications, and account
// ledgers in a local SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/stage"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS stage_config (
	stage TEXT PRIMARY KEY,
	impl  TEXT NOT NULL,
	blob  BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS applications (
	id         TEXT PRIMARY KEY,
	account    TEXT NOT NULL,
	state      TEXT NOT NULL,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_applications_account ON applications(account);
CREATE INDEX IF NOT EXISTS idx_applications_state ON applications(state);
CREATE TABLE IF NOT EXISTS accounts (
	name      TEXT PRIMARY KEY,
	app_limit INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS balances (
	account TEXT NOT NULL,
	kind    TEXT NOT NULL,
	amount  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account, kind)
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// StageConfig is one persisted (stage, implementation, blob) row.
type StageConfig struct {
	Stage stage.Stage
	Impl  string
	Blob  []byte
}

// SaveStageConfig upserts the chosen implementation and its blob for a stage.
func (s *Store) SaveStageConfig(st stage.Stage, impl string, blob []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO stage_config (stage, impl, blob) VALUES (?, ?, ?)
		ON CONFLICT(stage) DO UPDATE SET impl = excluded.impl, blob = excluded.blob`,
		string(st), impl, blob)
	if err != nil {
		return fmt.Errorf("store: save stage config %s: %w", st, err)
	}
	return nil
}

// StageConfigs returns every persisted stage configuration row.
func (s *Store) StageConfigs() ([]StageConfig, error) {
	rows, err := s.db.Query(`SELECT stage, impl, blob FROM stage_config ORDER BY stage`)
	if err != nil {
		return nil, fmt.Errorf("store: load stage configs: %w", err)
	}
	defer rows.Close()
	var out []StageConfig
	for rows.Next() {
		var cfg StageConfig
		var st string
		if err := rows.Scan(&st, &cfg.Impl, &cfg.Blob); err != nil {
			return nil, fmt.Errorf("store: scan stage config: %w", err)
		}
		cfg.Stage = stage.Stage(st)
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// SaveApplication upserts an application snapshot.
func (s *Store) SaveApplication(rec *application.Record) error {
	snap := rec.Snapshot()
	payload, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: encode application %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO applications (id, account, state, payload, updated_at)
		VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(id) DO UPDATE SET
			account = excluded.account,
			state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Account, string(rec.State), payload)
	if err != nil {
		return fmt.Errorf("store: save application %s: %w", rec.ID, err)
	}
	return nil
}

// LoadApplication restores one application by id.
func (s *Store) LoadApplication(id string) (*application.Record, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM applications WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load application %s: %w", id, err)
	}
	return decodeApplication(payload)
}

// ApplicationsByState lists applications in a given state, most recent first.
func (s *Store) ApplicationsByState(state application.State) ([]*application.Record, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM applications WHERE state = ? ORDER BY updated_at DESC`,
		string(state))
	if err != nil {
		return nil, fmt.Errorf("store: list %s applications: %w", state, err)
	}
	defer rows.Close()
	var out []*application.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan application: %w", err)
		}
		rec, err := decodeApplication(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InProgressApplication finds an account's resumable application, if any.
func (s *Store) InProgressApplication(account string) (*application.Record, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM applications
		WHERE account = ? AND state = ?
		ORDER BY updated_at DESC LIMIT 1`,
		account, string(application.StateInProgress)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find in-progress application for %s: %w", account, err)
	}
	return decodeApplication(payload)
}

// Decide moves a submitted application to approved or rejected. Deciding an
// application that is not in the submitted state is an error.
func (s *Store) Decide(id string, approved bool) error {
	rec, err := s.LoadApplication(id)
	if err != nil {
		return err
	}
	if rec.State != application.StateSubmitted {
		return fmt.Errorf("store: application %s is %s, not submitted", id, rec.State)
	}
	if approved {
		rec.State = application.StateApproved
	} else {
		rec.State = application.StateRejected
	}
	return s.SaveApplication(rec)
}

// DeleteApplication removes an application row entirely.
func (s *Store) DeleteApplication(id string) error {
	res, err := s.db.Exec(`DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete application %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeApplication(payload []byte) (*application.Record, error) {
	var snap application.Snapshot
	if err := yaml.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("store: decode application: %w", err)
	}
	return application.FromSnapshot(snap)
}

// EnsureAccount creates an account row with the given application limit if
// it does not already exist.
func (s *Store) EnsureAccount(name string, limit int) error {
	_, err := s.db.Exec(
		`INSERT INTO accounts (name, app_limit) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, limit)
	if err != nil {
		return fmt.Errorf("store: ensure account %s: %w", name, err)
	}
	return nil
}

// SetBalance sets an account's balance for one resource kind.
func (s *Store) SetBalance(name string, kind resource.Kind, amount int) error {
	_, err := s.db.Exec(`
		INSERT INTO balances (account, kind, amount) VALUES (?, ?, ?)
		ON CONFLICT(account, kind) DO UPDATE SET amount = excluded.amount`,
		name, string(kind), amount)
	if err != nil {
		return fmt.Errorf("store: set balance %s/%s: %w", name, kind, err)
	}
	return nil
}

// Balance implements account.Ledger.
func (s *Store) Balance(name string, kind resource.Kind) (int, error) {
	var amount int
	err := s.db.QueryRow(
		`SELECT amount FROM balances WHERE account = ? AND kind = ?`,
		name, string(kind)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: balance %s/%s: %w", name, kind, err)
	}
	return amount, nil
}

// ActiveApplications implements account.Ledger: in-flight plus approved.
func (s *Store) ActiveApplications(name string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM applications
		WHERE account = ? AND state IN (?, ?, ?)`,
		name,
		string(application.StateInProgress),
		string(application.StateSubmitted),
		string(application.StateApproved)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count applications for %s: %w", name, err)
	}
	return count, nil
}

// ApplicationLimit implements account.Ledger.
func (s *Store) ApplicationLimit(name string) (int, error) {
	var limit int
	err := s.db.QueryRow(`SELECT app_limit FROM accounts WHERE name = ?`, name).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: limit for %s: %w", name, err)
	}
	return limit, nil
}
