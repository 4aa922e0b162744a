// Package config loads and validates TyrConfig: providers order,
// fail-open/verbose flags, log retention, and the per-backend LLM
// settings, from a JSONC file plus an optional env dotfile.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Backend holds the settings shared by both LLM backends: {provider,
// model, endpoint, timeout, canDeny}.
type Backend struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
	CanDeny  bool   `json:"canDeny,omitempty"`
}

// TyrConfig is the declarative configuration record described in spec
// §3 and §6.
type TyrConfig struct {
	Providers    []string `json:"providers"`
	FailOpen     bool     `json:"failOpen"`
	VerboseLog   bool     `json:"verboseLog"`
	LogRetention string   `json:"logRetention"`

	// Nested split backends (preferred shape).
	Claude     *Backend `json:"claude,omitempty"`
	OpenRouter *Backend `json:"openrouter,omitempty"`
	// Legacy nested shape, still recognised.
	LLM *Backend `json:"llm,omitempty"`
}

// legacyFlatFields is the backward-compatible flat llm* key set that
// migrates into the nested `llm` shape on read.
type legacyFlatFields struct {
	LLMProvider string `json:"llmProvider,omitempty"`
	LLMModel    string `json:"llmModel,omitempty"`
	LLMEndpoint string `json:"llmEndpoint,omitempty"`
	LLMTimeout  string `json:"llmTimeout,omitempty"`
	LLMCanDeny  *bool  `json:"llmCanDeny,omitempty"`
}

// Default returns a TyrConfig with every recognised key at its
// documented default.
func Default() *TyrConfig {
	return &TyrConfig{
		Providers:    []string{"chained-commands"},
		FailOpen:     false,
		VerboseLog:   false,
		LogRetention: "30d",
	}
}

// Load reads and parses path as JSONC, applying defaults for any
// unset field. A missing file returns Default() with no error.
func Load(path string) (*TyrConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes JSONC bytes into a TyrConfig, migrating the legacy flat
// llm* keys into the nested shape and filling documented defaults for
// any field the source left unset.
func Parse(data []byte) (*TyrConfig, error) {
	stripped := StripJSONC(data)

	cfg := &TyrConfig{}
	if err := json.Unmarshal(stripped, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	var legacy legacyFlatFields
	if err := json.Unmarshal(stripped, &legacy); err != nil {
		return nil, fmt.Errorf("config: parse legacy fields: %w", err)
	}
	migrateLegacyFlatFields(cfg, legacy)

	applyDefaults(cfg)
	return cfg, nil
}

// migrateLegacyFlatFields folds a flat llmProvider/llmModel/... key set
// into cfg.LLM, without overwriting an already-present nested `llm`
// block.
func migrateLegacyFlatFields(cfg *TyrConfig, legacy legacyFlatFields) {
	hasLegacy := legacy.LLMProvider != "" || legacy.LLMModel != "" || legacy.LLMEndpoint != "" || legacy.LLMTimeout != "" || legacy.LLMCanDeny != nil
	if !hasLegacy || cfg.LLM != nil {
		return
	}
	b := &Backend{
		Provider: legacy.LLMProvider,
		Model:    legacy.LLMModel,
		Endpoint: legacy.LLMEndpoint,
		Timeout:  legacy.LLMTimeout,
	}
	if legacy.LLMCanDeny != nil {
		b.CanDeny = *legacy.LLMCanDeny
	}
	cfg.LLM = b
}

// applyDefaults fills documented defaults for any field Parse's source
// left unset.
func applyDefaults(cfg *TyrConfig) {
	if len(cfg.Providers) == 0 {
		cfg.Providers = []string{"chained-commands"}
	}
	if cfg.LogRetention == "" {
		cfg.LogRetention = "30d"
	}
}

// EnvFilePath is the conventional location of the auxiliary env
// dotfile, overridable by callers for tests.
func EnvFilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tyr", "env")
}

// LoadEnvDotfile populates any currently-unset environment variable
// from a simple KEY=VALUE dotfile, one assignment per line, '#'-led
// lines ignored. It never overwrites a variable that is already set
// (spec §5: "never overwrites existing ones").
func LoadEnvDotfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, value)
	}
	return nil
}

// parseDurationSuffix parses spec §6's duration syntax ^(\d+)[smhd]$
// into seconds.
func parseDurationSuffix(s string) (int64, bool) {
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	digits := s[:len(s)-1]
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return n, true
	case 'm':
		return n * 60, true
	case 'h':
		return n * 3600, true
	case 'd':
		return n * 86400, true
	}
	return 0, false
}

// ParseRetentionSeconds interprets a duration in the time grammar:
// N[smhd], or the literal "0" meaning disabled. An ISO-8601 absolute
// timestamp is rejected with an error, since it is not a duration;
// --since/--until accept one through ParseTimeGrammar instead.
func ParseRetentionSeconds(s string) (seconds int64, disabled bool, err error) {
	if s == "0" {
		return 0, true, nil
	}
	if n, ok := parseDurationSuffix(s); ok {
		return n, false, nil
	}
	return 0, false, fmt.Errorf("config: invalid duration %q, want N[smhd] or \"0\"", s)
}
