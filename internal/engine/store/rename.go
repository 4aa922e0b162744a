package store

import "strings"

// RenamePathPrefix rewrites every occurrence of oldPrefix at the start
// of a path-shaped column (logs.cwd, cache.cwd) to newPrefix, across
// both the logs and cache tables, prefix-safe (a partial-segment match
// like "/home/al" matching "/home/alice" is not rewritten).
func (s *Store) RenamePathPrefix(oldPrefix, newPrefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"logs", "cache"} {
		rows, err := tx.Query(`SELECT rowid, cwd FROM ` + table)
		if err != nil {
			return total, err
		}
		type rewrite struct {
			rowid int64
			cwd   string
		}
		var pending []rewrite
		for rows.Next() {
			var r rewrite
			if err := rows.Scan(&r.rowid, &r.cwd); err != nil {
				rows.Close()
				return total, err
			}
			if isPrefixSafe(r.cwd, oldPrefix) {
				pending = append(pending, r)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return total, err
		}

		for _, r := range pending {
			rewritten := newPrefix + strings.TrimPrefix(r.cwd, oldPrefix)
			if _, err := tx.Exec(`UPDATE `+table+` SET cwd=? WHERE rowid=?`, rewritten, r.rowid); err != nil {
				return total, err
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return total, err
	}
	return total, nil
}

// isPrefixSafe reports whether s starts with prefix at a path-segment
// boundary: either s equals prefix exactly, or the character
// immediately following prefix in s is a path separator.
func isPrefixSafe(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	return s[len(prefix)] == '/'
}
