package store

// Stats is the aggregate summary the `stats` command reports (spec
// §6): totals, per-decision counts, cache hit rate, and per-provider
// counts. AutoApprovals mirrors the allow count, since every allow
// verdict is, by definition, an approval the host did not have to ask
// the user for.
type Stats struct {
	Total         int64
	ByDecision    map[string]int64
	ByProvider    map[string]int64
	Cached        int64
	AutoApprovals int64
}

// CacheHitRate returns Cached/Total, or 0 when Total is 0.
func (s Stats) CacheHitRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Cached) / float64(s.Total)
}

// Stats computes the aggregate summary for log rows in [since, until]
// (either bound 0 means unconstrained), pruning expired rows first per
// spec §4.8's read-time retention, the same as Tail.
func (s *Store) Stats(since, until, retentionSeconds, now int64) (Stats, error) {
	s.pruneOnce(retentionSeconds, now)

	s.mu.RLock()
	defer s.mu.RUnlock()

	where := `WHERE 1=1`
	var args []any
	if since > 0 {
		where += ` AND timestamp >= ?`
		args = append(args, since)
	}
	if until > 0 {
		where += ` AND timestamp <= ?`
		args = append(args, until)
	}

	out := Stats{ByDecision: make(map[string]int64), ByProvider: make(map[string]int64)}

	if err := s.db.QueryRow(`SELECT count(*) FROM logs `+where, args...).Scan(&out.Total); err != nil {
		return out, err
	}

	rows, err := s.db.Query(`SELECT decision, count(*) FROM logs `+where+` GROUP BY decision`, args...)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var decision string
		var n int64
		if err := rows.Scan(&decision, &n); err != nil {
			rows.Close()
			return out, err
		}
		out.ByDecision[decision] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return out, err
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT provider, count(*) FROM logs `+where+` AND provider IS NOT NULL AND provider <> '' GROUP BY provider`, args...)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var provider string
		var n int64
		if err := rows.Scan(&provider, &n); err != nil {
			rows.Close()
			return out, err
		}
		out.ByProvider[provider] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return out, err
	}
	rows.Close()

	var cached int64
	if err := s.db.QueryRow(`SELECT count(*) FROM logs `+where+` AND cached = 1`, args...).Scan(&cached); err != nil {
		return out, err
	}
	out.Cached = cached
	out.AutoApprovals = out.ByDecision["allow"]

	return out, nil
}
