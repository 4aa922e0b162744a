package suggest

import (
	"os"
	"path/filepath"
	"testing"

	"tyr/internal/engine/rulestore"
)

type fixedCounts map[string]int

func (f fixedCounts) AllowedCommandCounts() (map[string]int, error) {
	return map[string]int(f), nil
}

func TestMineDropsBelowThreshold(t *testing.T) {
	counts := fixedCounts{
		"npm test":             5,
		"git status":           1,
		"git push origin main": 3,
	}
	out, err := Mine(counts, rulestore.ScopePaths{}, AllScopes, 3)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	var got []string
	for _, s := range out {
		got = append(got, s.Pattern)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions at min-count 3, got %v", got)
	}
}

func TestMineExcludesAlreadyCoveredByScopeAllowList(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "settings.json")
	os.WriteFile(shared, []byte(`{"permissions":{"allow":["Bash(git status*)"]}}`), 0o644)

	counts := fixedCounts{
		"git status":   10,
		"git status -s": 10,
		"npm test":     10,
	}
	scope := rulestore.ScopePaths{Shared: shared}
	out, err := Mine(counts, scope, AllScopes, 1)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(out) != 1 || out[0].Pattern != "npm test" {
		t.Fatalf("expected only npm test to survive exclusion, got %+v", out)
	}
}

func TestMineSortsByCountDescending(t *testing.T) {
	counts := fixedCounts{
		"a": 2,
		"b": 9,
		"c": 5,
	}
	out, err := Mine(counts, rulestore.ScopePaths{}, AllScopes, 1)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(out) != 3 || out[0].Pattern != "b" || out[1].Pattern != "c" || out[2].Pattern != "a" {
		t.Fatalf("got %+v", out)
	}
}

func TestFormatBashPattern(t *testing.T) {
	if got := FormatBashPattern("git status"); got != "Bash(git status)" {
		t.Fatalf("got %q", got)
	}
}
