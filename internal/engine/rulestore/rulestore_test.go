package rulestore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseRuleFileExtractsBashPatterns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeSettings(t, path, `{
		"permissions": {
			"allow": ["Bash(git *)", "Bash", "Read(*)", 42, "Bash(npm test)"],
			"deny": ["Bash(rm *)"]
		}
	}`)

	allow, deny, err := parseRuleFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantAllow := []string{"git *", "*", "npm test"}
	if len(allow) != len(wantAllow) {
		t.Fatalf("allow = %v, want %v", allow, wantAllow)
	}
	for i, w := range wantAllow {
		if allow[i] != w {
			t.Fatalf("allow[%d] = %q, want %q", i, allow[i], w)
		}
	}
	if len(deny) != 1 || deny[0] != "rm *" {
		t.Fatalf("deny = %v", deny)
	}
}

func TestParseRuleFileMissingFileIsNotError(t *testing.T) {
	allow, deny, err := parseRuleFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil || allow != nil || deny != nil {
		t.Fatalf("expected no error and nil lists, got %v %v %v", allow, deny, err)
	}
}

func TestParseRuleFileMalformedJSONIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeSettings(t, path, `{ not json `)
	_, _, err := parseRuleFile(path)
	if err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestParseRuleFileWrongPermissionsType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeSettings(t, path, `{"permissions": "not-an-object"}`)
	_, _, err := parseRuleFile(path)
	if err == nil {
		t.Fatalf("expected an error when permissions is the wrong type")
	}
}

func TestStoreClassifyDenyWinsOverAllow(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "local.json")
	shared := filepath.Join(dir, "shared.json")
	writeSettings(t, local, `{"permissions": {"deny": ["Bash(git push *)"]}}`)
	writeSettings(t, shared, `{"permissions": {"allow": ["Bash(git *)"]}}`)

	s, err := Init(dir, &ScopePaths{Local: local, Shared: shared}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if v := s.Classify("git push origin main"); v != "deny" {
		t.Fatalf("expected deny, got %v", v)
	}
	if v := s.Classify("git status"); v != "allow" {
		t.Fatalf("expected allow, got %v", v)
	}
	if v := s.Classify("curl example.com"); v != "abstain" {
		t.Fatalf("expected abstain for unmatched command, got %v", v)
	}
}
