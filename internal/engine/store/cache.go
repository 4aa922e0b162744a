package store

import (
	"database/sql"
	"errors"

	"tyr/internal/engine"
)

// CacheKey is the primary key spec §4.7 defines for the decision cache.
type CacheKey struct {
	ToolName   string
	ToolInput  string // canonical(tool_input)
	Cwd        string
	ConfigHash string
}

// CacheEntry is a stored terminal verdict.
type CacheEntry struct {
	Decision engine.Verdict
	Provider string
	Reason   string
}

// CacheGet returns the stored verdict for key, or (zero, false) on a
// miss. A miss is not an error: the cache simply has no opinion.
func (s *Store) CacheGet(key CacheKey) (CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry CacheEntry
	var provider, reason sql.NullString
	var decision string
	err := s.db.QueryRow(
		`SELECT decision, provider, reason FROM cache WHERE tool_name=? AND tool_input=? AND cwd=? AND config_hash=?`,
		key.ToolName, key.ToolInput, key.Cwd, key.ConfigHash,
	).Scan(&decision, &provider, &reason)
	if err != nil {
		// A lookup failure (no row, or a persistence error) is treated
		// as a miss on the hot path: errors here must never block a
		// decision.
		return CacheEntry{}, false
	}
	entry.Decision = engine.Verdict(decision)
	entry.Provider = provider.String
	entry.Reason = reason.String
	return entry, true
}

// CachePut upserts a terminal verdict for key. Abstains must never be
// passed here; callers enforce this by only calling CachePut after a
// pipeline stage other than the cache itself produced allow or deny.
func (s *Store) CachePut(key CacheKey, entry CacheEntry, createdAt int64) error {
	if entry.Decision != engine.Allow && entry.Decision != engine.Deny {
		return errors.New("store: only terminal allow/deny verdicts may be cached")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO cache (tool_name, tool_input, cwd, config_hash, decision, provider, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tool_name, tool_input, cwd, config_hash)
		 DO UPDATE SET decision=excluded.decision, provider=excluded.provider, reason=excluded.reason, created_at=excluded.created_at`,
		key.ToolName, key.ToolInput, key.Cwd, key.ConfigHash,
		string(entry.Decision), entry.Provider, entry.Reason, createdAt,
	)
	return err
}

// CacheGC deletes cache rows whose config_hash does not equal current.
// Stale rows are inert (CacheGet only ever matches the live hash) so
// this is purely reclamation, safe to run at any time.
func (s *Store) CacheGC(current string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM cache WHERE config_hash <> ?`, current)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
