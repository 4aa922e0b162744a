package store

import "fmt"

// migration is one unit migration applied in order, each bumping
// schema_version by exactly one on success. Historical tables (logs,
// llm_logs) may only be extended by a migration; the cache table may be
// dropped and recreated freely since it is pure memoisation.
type migration struct {
	toVersion int
	stmt      string
}

// migrations is the ordered list of unit migrations from version 1
// onward. Empty today: CurrentSchemaVersion is 1 and firstTimeInstall
// creates the version-1 schema directly. Future schema changes append
// here rather than editing schemaDDL, so a store created under an older
// binary can still be brought forward with `tyr db migrate`.
var migrations []migration

// Migrate applies every migration whose toVersion is greater than the
// store's current version, in order, each in its own transaction,
// bumping _meta.schema_version as it goes. Running it on an
// already-current database is a no-op.
func (s *Store) Migrate() error {
	current, err := s.readSchemaVersion()
	if err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range migrations {
		if m.toVersion <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin migration to v%d: %w", m.toVersion, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration to v%d: %w", m.toVersion, err)
		}
		if _, err := tx.Exec(`UPDATE _meta SET value=? WHERE key='schema_version'`, fmt.Sprintf("%d", m.toVersion)); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: stamp schema version %d: %w", m.toVersion, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration to v%d: %w", m.toVersion, err)
		}
		current = m.toVersion
	}
	return nil
}
