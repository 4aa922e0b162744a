package store

import (
	"path/filepath"
	"testing"

	"tyr/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tyr.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchemaAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tyr.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (version==current) should be a no-op, got: %v", err)
	}
	s2.Close()
}

func TestMigrateOnCurrentIsNoOp(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(); err != nil {
		t.Fatalf("expected no-op migrate on current schema, got: %v", err)
	}
}

func TestCacheRoundTripAndMiss(t *testing.T) {
	s := openTestStore(t)
	key := CacheKey{ToolName: "Bash", ToolInput: "git status", Cwd: "/repo", ConfigHash: "h1"}

	if _, ok := s.CacheGet(key); ok {
		t.Fatalf("expected a miss before any write")
	}

	entry := CacheEntry{Decision: engine.Allow, Provider: "chained-commands", Reason: ""}
	if err := s.CachePut(key, entry, 1000); err != nil {
		t.Fatalf("CachePut: %v", err)
	}

	got, ok := s.CacheGet(key)
	if !ok {
		t.Fatalf("expected a hit after write")
	}
	if got.Decision != engine.Allow || got.Provider != "chained-commands" {
		t.Fatalf("got %+v", got)
	}

	otherHash := key
	otherHash.ConfigHash = "h2"
	if _, ok := s.CacheGet(otherHash); ok {
		t.Fatalf("expected a miss for a different config_hash")
	}
}

func TestCachePutRejectsAbstain(t *testing.T) {
	s := openTestStore(t)
	key := CacheKey{ToolName: "Bash", ToolInput: "x", Cwd: "/", ConfigHash: "h"}
	err := s.CachePut(key, CacheEntry{Decision: engine.Abstain}, 0)
	if err == nil {
		t.Fatalf("expected an error when caching an abstain verdict")
	}
}

func TestAppendLogAndTailRoundTrip(t *testing.T) {
	s := openTestStore(t)

	entry := LogEntry{
		Timestamp: 1000, SessionID: "s1", Cwd: "/repo", ToolName: "Bash",
		ToolInput: "git status", Input: `{"command":"git status"}`,
		Decision: "allow", Provider: "chained-commands", DurationMs: 5,
	}
	id, err := s.AppendLog(entry, nil)
	if err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a non-zero id")
	}

	rows, err := s.Tail(LogFilter{LastN: 10}, 0, 2000)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.SessionID != "s1" || got.ToolInput != "git status" || got.Decision != "allow" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestTailAscendingOrderWithLastN(t *testing.T) {
	s := openTestStore(t)
	for i := int64(1); i <= 5; i++ {
		if _, err := s.AppendLog(LogEntry{Timestamp: i, SessionID: "s", Cwd: "/", ToolName: "Bash", ToolInput: "x", Input: "{}", Decision: "allow", DurationMs: 1}, nil); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.Tail(LogFilter{LastN: 3}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 0; i < len(rows)-1; i++ {
		if rows[i].ID >= rows[i+1].ID {
			t.Fatalf("expected ascending id order, got %+v", rows)
		}
	}
}

func TestPruneRemovesOldRowsOnce(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AppendLog(LogEntry{Timestamp: 1, SessionID: "s", Cwd: "/", ToolName: "Bash", ToolInput: "old", Input: "{}", Decision: "allow", DurationMs: 1}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendLog(LogEntry{Timestamp: 1000, SessionID: "s", Cwd: "/", ToolName: "Bash", ToolInput: "new", Input: "{}", Decision: "allow", DurationMs: 1}, nil); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Tail(LogFilter{}, 100, 100500)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ToolInput != "new" {
		t.Fatalf("expected only the fresh row to survive pruning, got %+v", rows)
	}
}

func TestRenamePathPrefixIsSegmentSafe(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AppendLog(LogEntry{Timestamp: 1, SessionID: "s", Cwd: "/home/alice/proj", ToolName: "Bash", ToolInput: "x", Input: "{}", Decision: "allow", DurationMs: 1}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendLog(LogEntry{Timestamp: 1, SessionID: "s", Cwd: "/home/alicex/proj", ToolName: "Bash", ToolInput: "x", Input: "{}", Decision: "allow", DurationMs: 1}, nil); err != nil {
		t.Fatal(err)
	}

	n, err := s.RenamePathPrefix("/home/alice", "/home/renamed")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 rewrite, got %d", n)
	}

	rows, err := s.Tail(LogFilter{}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	var sawRenamed, sawUntouched bool
	for _, r := range rows {
		if r.Cwd == "/home/renamed/proj" {
			sawRenamed = true
		}
		if r.Cwd == "/home/alicex/proj" {
			sawUntouched = true
		}
	}
	if !sawRenamed || !sawUntouched {
		t.Fatalf("got rows %+v", rows)
	}
}
