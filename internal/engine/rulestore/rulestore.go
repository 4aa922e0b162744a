// Package rulestore loads, merges, and hot-reloads Bash permission rules
// from the host's own settings files across four layered scopes.
package rulestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tyr/internal/engine"
	"tyr/internal/engine/pattern"
)

// ScopePaths are the four settings-file locations merged into one
// policy, in highest-to-lowest precedence order: managed, local,
// shared, user-global. These mirror the host's own settings file
// hierarchy (a fixed managed-settings path, a per-project
// not-version-controlled local override, a per-project shared file, and
// a user-global file under the home directory).
type ScopePaths struct {
	Managed    string
	Local      string
	Shared     string
	UserGlobal string
}

// DefaultScopePaths computes the conventional four paths for a given
// project working directory. CLAUDE_CONFIG_DIR overrides the
// user-global directory per spec §6.
func DefaultScopePaths(cwd string) ScopePaths {
	home, _ := os.UserHomeDir()
	globalDir := filepath.Join(home, ".claude")
	if override := os.Getenv("CLAUDE_CONFIG_DIR"); override != "" {
		globalDir = override
	}
	managed := "/etc/claude-code/managed-settings.json"
	if runtimeManaged := os.Getenv("TYR_MANAGED_SETTINGS_FILE"); runtimeManaged != "" {
		managed = runtimeManaged
	}
	return ScopePaths{
		Managed:    managed,
		Local:      filepath.Join(cwd, ".claude", "settings.local.json"),
		Shared:     filepath.Join(cwd, ".claude", "settings.json"),
		UserGlobal: filepath.Join(globalDir, "settings.json"),
	}
}

// ordered returns the four paths in merge/precedence order.
func (p ScopePaths) ordered() []string {
	return []string{p.Managed, p.Local, p.Shared, p.UserGlobal}
}

// Snapshot is the current merged (allow, deny) policy, replaced
// wholesale on every reload so readers never observe a half-updated
// state. It is exactly engine.Policy: the rule store is that type's
// one producer.
type Snapshot = engine.Policy

// Store holds the live merged policy and watches the four scope files
// for changes, reparsing and atomically swapping the snapshot whenever
// any of them change.
type Store struct {
	paths    ScopePaths
	snap     atomic.Pointer[Snapshot]
	patterns *pattern.Cache
	watcher  *fsnotify.Watcher
	done     chan struct{}
	log      *zap.SugaredLogger
}

// Init loads all four scope files (missing files are not errors;
// unparsable files are logged and skipped without affecting siblings)
// and starts a watcher that reparses everything on any change.
func Init(cwd string, override *ScopePaths, log *zap.SugaredLogger) (*Store, error) {
	paths := DefaultScopePaths(cwd)
	if override != nil {
		paths = *override
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Store{paths: paths, patterns: pattern.NewCache(), done: make(chan struct{}), log: log}
	s.snap.Store(s.loadAll())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// A watcher failure must not prevent the hot path from working;
		// the snapshot already loaded above is still usable, it just
		// won't hot-reload.
		s.log.Warnw("rule store watcher unavailable, hot reload disabled", "error", err)
		return s, nil
	}
	s.watcher = watcher
	watchedDirs := make(map[string]struct{})
	for _, p := range paths.ordered() {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if _, ok := watchedDirs[dir]; ok {
			continue
		}
		watchedDirs[dir] = struct{}{}
		if err := watcher.Add(dir); err != nil {
			s.log.Debugw("could not watch rule scope directory", "dir", dir, "error", err)
		}
	}
	go s.watchLoop()
	return s, nil
}

// watchLoop coalesces bursts of fsnotify events into a single reload:
// it drains every event arriving within a short debounce window before
// reparsing once.
func (s *Store) watchLoop() {
	const debounce = 75 * time.Millisecond
	var timer *time.Timer
	for {
		select {
		case <-s.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					s.snap.Store(s.loadAll())
				})
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Debugw("rule store watcher error", "error", err)
		}
	}
}

// loadAll reparses every configured scope path and returns the merged
// snapshot. Scope order in the merged lists follows precedence order;
// classify() itself is order-independent (deny is checked across the
// whole merged deny list before any allow list is consulted), so this
// ordering exists for debugInfo() readability, not correctness.
func (s *Store) loadAll() *Snapshot {
	snap := &Snapshot{}
	for _, p := range s.paths.ordered() {
		if p == "" {
			continue
		}
		allow, deny, err := parseRuleFile(p)
		if err != nil {
			s.log.Debugw("skipping unparsable rule file", "path", p, "error", err)
			continue
		}
		snap.Allow = append(snap.Allow, allow...)
		snap.Deny = append(snap.Deny, deny...)
	}
	return snap
}

// Classify evaluates a reconstructed simple-command string against the
// current merged policy: deny patterns are checked first (any match
// short-circuits to Deny), then allow patterns. Abstain here stands for
// spec's "unknown" — no rule matched either list.
func (s *Store) Classify(command string) engine.Verdict {
	snap := s.snap.Load()
	if snap == nil {
		return engine.Abstain
	}
	if pattern.AnyMatch(s.patterns, snap.Deny, command) {
		return engine.Deny
	}
	if pattern.AnyMatch(s.patterns, snap.Allow, command) {
		return engine.Allow
	}
	return engine.Abstain
}

// DebugInfo returns the current merged lists, used by LLM prompts and
// diagnostics.
func (s *Store) DebugInfo() (allow, deny []string) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, nil
	}
	return append([]string(nil), snap.Allow...), append([]string(nil), snap.Deny...)
}

// ScopeAllowPatterns returns the allow patterns contributed by exactly
// the scope paths in scope, without consulting the store's live merged
// snapshot. Used by suggestion mining (spec §12), where --all|--project
// |--global narrows which scope's existing allow list is checked for
// the already-covered exclusion.
func ScopeAllowPatterns(scope ScopePaths) ([]string, error) {
	var allow []string
	for _, p := range scope.ordered() {
		if p == "" {
			continue
		}
		a, _, err := parseRuleFile(p)
		if err != nil {
			continue
		}
		allow = append(allow, a...)
	}
	return allow, nil
}

// Close stops the background watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// ruleFile is the lenient shape of the host's own settings file: only
// permissions.allow/permissions.deny are consulted, and only their
// string entries.
type ruleFile struct {
	Permissions *struct {
		Allow []json.RawMessage `json:"allow"`
		Deny  []json.RawMessage `json:"deny"`
	} `json:"permissions"`
}

// parseRuleFile reads path and extracts Bash(...) patterns from its
// permissions.allow/deny arrays. A missing file is not an error (the
// scope is simply empty); a malformed file is reported as an error so
// the caller can log-and-skip it without losing sibling scopes.
func parseRuleFile(path string) (allow, deny []string, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, nil, nil
		}
		return nil, nil, readErr
	}

	var raw ruleFile
	if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
		// Malformed top-level JSON is treated as absent per spec, not as
		// a hard failure that would also drop sibling scopes - but we
		// still report it, tagged with ErrRuleFileParse, so the rule
		// store can log it and callers can tell this apart from a read
		// failure.
		return nil, nil, fmt.Errorf("%w: %s: %v", engine.ErrRuleFileParse, path, jsonErr)
	}
	if raw.Permissions == nil {
		return nil, nil, nil
	}
	for _, entry := range raw.Permissions.Allow {
		if p, ok := extractBashPattern(entry); ok {
			allow = append(allow, p)
		}
	}
	for _, entry := range raw.Permissions.Deny {
		if p, ok := extractBashPattern(entry); ok {
			deny = append(deny, p)
		}
	}
	return allow, deny, nil
}

// extractBashPattern converts one permissions entry into a Bash
// pattern. Non-string entries are ignored individually (not a parse
// failure); bare "Bash" is the wildcard pattern "*"; "Bash(X)" becomes
// pattern X; any other Tool(Y) entry is ignored.
func extractBashPattern(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if s == "Bash" {
		return "*", true
	}
	if strings.HasPrefix(s, "Bash(") && strings.HasSuffix(s, ")") {
		return s[len("Bash(") : len(s)-1], true
	}
	return "", false
}
