// Package store is Tyr's embedded relational persistence layer: the
// cache, audit log, and schema/version gate described in spec §4.7-4.9.
// Built on modernc.org/sqlite (pure Go, no cgo) so tyr stays a single
// static binary the way its teacher is.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"tyr/internal/engine"
)

// CurrentSchemaVersion is the schema version this build of tyr expects.
const CurrentSchemaVersion = 1

// Store wraps a single *sql.DB with the mutex discipline used
// throughout the teacher's own trace store: every write is guarded, and
// the mutex is held for the shortest possible section around each
// statement.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	prunedOnce atomic.Bool
}

// Open opens (or creates) the sqlite file at path, applies the
// WAL/busy-timeout/foreign-key pragmas, and runs the version gate.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.gateSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenForMigration opens path the same way Open does but skips the
// version gate, so `tyr db migrate` can obtain a handle on a store
// Open would otherwise refuse as out of date.
func OpenForMigration(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	hasMeta, err := (&Store{db: db}).tableExists("_meta")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	s := &Store{db: db}
	if !hasMeta {
		if err := s.firstTimeInstall(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// gateSchema implements spec §4.9's four cases: no _meta table means a
// first-time install (create everything and stamp the current version
// in one transaction); present and current is a no-op; older means the
// caller must run the migrate command; newer means the caller must
// upgrade tyr.
func (s *Store) gateSchema() error {
	hasMeta, err := s.tableExists("_meta")
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	if !hasMeta {
		return s.firstTimeInstall()
	}

	version, err := s.readSchemaVersion()
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	switch {
	case version == CurrentSchemaVersion:
		return nil
	case version < CurrentSchemaVersion:
		return engine.ErrSchemaOutOfDate
	default:
		return engine.ErrSchemaTooNew
	}
}

func (s *Store) tableExists(name string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) readSchemaVersion() (int, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM _meta WHERE key='schema_version'`).Scan(&raw)
	if err != nil {
		return 0, err
	}
	var version int
	if _, err := fmt.Sscanf(raw, "%d", &version); err != nil {
		return 0, err
	}
	return version, nil
}

// firstTimeInstall creates every table/index and stamps the current
// schema version in a single transaction.
func (s *Store) firstTimeInstall() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	if _, err := tx.Exec(`INSERT INTO _meta(key, value) VALUES ('schema_version', ?)`, fmt.Sprintf("%d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistence, err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS _meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   INTEGER NOT NULL,
	session_id  TEXT NOT NULL,
	cwd         TEXT NOT NULL,
	tool_name   TEXT NOT NULL,
	tool_input  TEXT NOT NULL,
	input       TEXT NOT NULL,
	decision    TEXT NOT NULL CHECK (decision IN ('allow','deny','abstain','error')),
	provider    TEXT,
	reason      TEXT,
	duration_ms INTEGER NOT NULL,
	cached      INTEGER NOT NULL DEFAULT 0,
	mode        TEXT CHECK (mode IN ('shadow','audit') OR mode IS NULL)
);

CREATE TABLE IF NOT EXISTS llm_logs (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	log_id INTEGER NOT NULL REFERENCES logs(id),
	prompt TEXT NOT NULL,
	model  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cache (
	tool_name   TEXT NOT NULL,
	tool_input  TEXT NOT NULL,
	cwd         TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	decision    TEXT NOT NULL CHECK (decision IN ('allow','deny')),
	provider    TEXT,
	reason      TEXT,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (tool_name, tool_input, cwd, config_hash)
);

CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_logs_session ON logs(session_id);
CREATE INDEX IF NOT EXISTS idx_logs_suggest ON logs(decision, mode, tool_input);
CREATE INDEX IF NOT EXISTS idx_llm_logs_log_id ON llm_logs(log_id);
`
