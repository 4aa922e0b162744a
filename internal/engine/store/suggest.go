package store

// AllowedCommandCounts groups every logs row with decision='allow' and
// tool_name='Bash' by its canonical command text (tool_input) and
// returns the occurrence count for each distinct command. Log rows are
// global to the store regardless of any scope the caller will later use
// to decide which commands are already covered (spec §12).
func (s *Store) AllowedCommandCounts() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT tool_input, count(*) FROM logs WHERE decision='allow' AND tool_name='Bash' GROUP BY tool_input`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var command string
		var n int
		if err := rows.Scan(&command, &n); err != nil {
			return nil, err
		}
		counts[command] = n
	}
	return counts, rows.Err()
}
