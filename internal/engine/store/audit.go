package store

import (
	"database/sql"
)

// LogEntry mirrors spec §3's log entry shape. Mode is "" for a normal
// run, "shadow", or "audit".
type LogEntry struct {
	ID         int64
	Timestamp  int64
	SessionID  string
	Cwd        string
	ToolName   string
	ToolInput  string
	Input      string
	Decision   string
	Provider   string
	Reason     string
	DurationMs int64
	Cached     bool
	Mode       string
}

// LLMSide holds the verbose-logging side row paired to one LogEntry via
// its log_id foreign key.
type LLMSide struct {
	LogID  int64
	Prompt string
	Model  string
}

// AppendLog writes exactly one log row (and, if side is non-nil, its
// paired llm_logs row) and returns the assigned id. Writes are durable
// before this call returns; the hot path treats any error here as
// best-effort and must not let it mask the user-facing decision.
func (s *Store) AppendLog(entry LogEntry, side *LLMSide) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := 0
	if entry.Cached {
		cached = 1
	}
	var mode any
	if entry.Mode != "" {
		mode = entry.Mode
	}
	// Audit mode (and any other run that never reaches a provider) has
	// no provider or reason to report; store SQL NULL rather than "" so
	// a reader sees the absence, not an empty opinion.
	var dbProvider, dbReason any
	if entry.Provider != "" {
		dbProvider = entry.Provider
	}
	if entry.Reason != "" {
		dbReason = entry.Reason
	}

	result, err := s.db.Exec(
		`INSERT INTO logs (timestamp, session_id, cwd, tool_name, tool_input, input, decision, provider, reason, duration_ms, cached, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.SessionID, entry.Cwd, entry.ToolName, entry.ToolInput, entry.Input,
		entry.Decision, dbProvider, dbReason, entry.DurationMs, cached, mode,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if side != nil {
		if _, err := s.db.Exec(
			`INSERT INTO llm_logs (log_id, prompt, model) VALUES (?, ?, ?)`,
			id, side.Prompt, side.Model,
		); err != nil {
			return id, err
		}
	}
	return id, nil
}

// LogFilter narrows a Tail call. Zero values mean "no constraint" for
// that field.
type LogFilter struct {
	Since      int64
	Until      int64
	Decision   string
	Provider   string
	CwdPrefix  string
	LastN      int
}

// Tail returns rows matching filter in ascending id order, even though
// "last N" is internally fetched newest-first and reversed, per spec
// §4.8.
func (s *Store) Tail(filter LogFilter, retentionSeconds int64, now int64) ([]LogEntry, error) {
	s.pruneOnce(retentionSeconds, now)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, session_id, cwd, tool_name, tool_input, input, decision, provider, reason, duration_ms, cached, mode FROM logs WHERE 1=1`
	var args []any
	if filter.Since > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since)
	}
	if filter.Until > 0 {
		query += ` AND timestamp <= ?`
		args = append(args, filter.Until)
	}
	if filter.Decision != "" {
		query += ` AND decision = ?`
		args = append(args, filter.Decision)
	}
	if filter.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, filter.Provider)
	}
	if filter.CwdPrefix != "" {
		query += ` AND cwd LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(filter.CwdPrefix)+"%")
	}
	query += ` ORDER BY id DESC`
	if filter.LastN > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.LastN)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var provider, reason, mode sql.NullString
		var cached int
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &e.Cwd, &e.ToolName, &e.ToolInput, &e.Input, &e.Decision, &provider, &reason, &e.DurationMs, &cached, &mode); err != nil {
			return nil, err
		}
		e.Provider = provider.String
		e.Reason = reason.String
		e.Mode = mode.String
		e.Cached = cached != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fetched DESC+LIMIT (or unbounded DESC); reverse to ascending id
	// order as spec requires for a tail.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// escapeLike escapes LIKE metacharacters in a user-supplied prefix.
func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			r = append(r, '\\')
		}
		r = append(r, s[i])
	}
	return string(r)
}

// ClearLogs deletes every row from logs and llm_logs.
func (s *Store) ClearLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM llm_logs`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM logs`); err != nil {
		return err
	}
	return tx.Commit()
}

// pruneOnce removes rows older than now-retentionSeconds, at most once
// per process. now is in milliseconds since epoch, the unit of the
// timestamp column. retentionSeconds <= 0 disables pruning (spec: "0"
// disables).
func (s *Store) pruneOnce(retentionSeconds int64, now int64) {
	if retentionSeconds <= 0 {
		return
	}
	if !s.prunedOnce.CompareAndSwap(false, true) {
		return
	}
	cutoff := now - retentionSeconds*1000
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM llm_logs WHERE log_id IN (SELECT id FROM logs WHERE timestamp < ?)`, cutoff); err != nil {
		return
	}
	if _, err := tx.Exec(`DELETE FROM logs WHERE timestamp < ?`, cutoff); err != nil {
		return
	}
	tx.Commit()
}
