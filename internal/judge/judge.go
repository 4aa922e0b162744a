// Package judge wires the rule store, pipeline, cache, and audit log
// into the hot-path decision: stdin's PermissionRequest in, a
// HookResponse (or nothing) out, per spec §4.10.
package judge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tyr/internal/engine"
	"tyr/internal/engine/config"
	"tyr/internal/engine/pipeline"
	"tyr/internal/engine/provider"
	"tyr/internal/engine/rulestore"
	"tyr/internal/engine/store"
)

// Mode selects one of spec §4.10's run modes. The zero value is Normal.
type Mode int

const (
	Normal Mode = iota
	Shadow
	Audit
)

// Options captures every judge-relevant CLI flag and override. Shadow
// and Audit are the raw flag values, not a pre-resolved Mode: Judge
// rejects the combination of both set as a usage error rather than
// silently preferring one.
type Options struct {
	Cwd                  string
	SessionID            string
	Shadow               bool
	Audit                bool
	FailOpenOverride     *bool
	CacheChecks          bool
	AllowChainedCommands bool
	LLMModel             string
	LLMTimeout           time.Duration
	LLMProvider          string
}

// resolveMode turns opts' raw Shadow/Audit flags into a single Mode,
// rejecting the mutually exclusive combination per spec §4.10/§7.
func resolveMode(opts Options) (Mode, error) {
	if opts.Audit && opts.Shadow {
		return Normal, fmt.Errorf("%w: --audit and --shadow are mutually exclusive", engine.ErrFlagUsage)
	}
	switch {
	case opts.Audit:
		return Audit, nil
	case opts.Shadow:
		return Shadow, nil
	default:
		return Normal, nil
	}
}

// Engine bundles the live components a judge call needs.
type Engine struct {
	cfg   *config.TyrConfig
	rules *rulestore.Store
	db    *store.Store
	log   *zap.SugaredLogger
}

// Build constructs an Engine from a loaded TyrConfig, an initialised
// rule store, and an open persistence handle. Callers (cmd/tyr) own the
// lifecycle of rules/db and must Close them.
func Build(cfg *config.TyrConfig, rules *rulestore.Store, db *store.Store, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{cfg: cfg, rules: rules, db: db, log: log}
}

// Outcome is what callers need to frame a response and exit.
type Outcome struct {
	Response  engine.HookResponse
	HasOutput bool
	Verdict   engine.Verdict
	Provider  string
	Reason    string
}

// Judge evaluates one request through the pipeline appropriate to opts,
// applies the run-mode and fail-open semantics, writes the audit log
// row, and returns what the caller should write to stdout (if
// anything).
func (e *Engine) Judge(ctx context.Context, req *engine.PermissionRequest, opts Options, nowMillis int64) (Outcome, error) {
	start := time.Now()

	mode, err := resolveMode(opts)
	if err != nil {
		return Outcome{}, err
	}

	configHash := e.fingerprint(opts)

	if mode == Audit {
		// Audit mode skips the pipeline entirely and always abstains.
		e.logRow(req, engine.Abstain, "", "", nil, false, time.Since(start), "audit", nowMillis)
		return Outcome{Verdict: engine.Abstain}, nil
	}

	pipe := e.buildPipeline(opts, configHash)
	result := pipe.Run(ctx, req)

	verdict := result.Verdict
	providerName := result.Provider
	reason := result.Reason

	var side *store.LLMSide
	if e.cfg.VerboseLog && result.Prompt != "" {
		side = &store.LLMSide{Prompt: result.Prompt, Model: result.Model}
	}

	failOpen := e.cfg.FailOpen
	if opts.FailOpenOverride != nil {
		failOpen = *opts.FailOpenOverride
	}
	if verdict == engine.Abstain && failOpen {
		verdict = engine.Allow
		providerName = "fail-open"
		reason = ""
	}

	// Only terminal verdicts from a non-cache stage get written back;
	// a cache hit is already in the cache and does not need rewriting.
	if (verdict == engine.Allow || verdict == engine.Deny) && !result.Cached && opts.CacheChecks && e.db != nil {
		key := store.CacheKey{
			ToolName:   req.ToolName,
			ToolInput:  req.CanonicalToolInput(),
			Cwd:        req.Cwd,
			ConfigHash: configHash,
		}
		_ = e.db.CachePut(key, store.CacheEntry{Decision: verdict, Provider: providerName, Reason: reason}, nowMillis/1000)
	}

	modeLabel := ""
	if mode == Shadow {
		modeLabel = "shadow"
	}
	e.logRow(req, verdict, providerName, reason, side, result.Cached, time.Since(start), modeLabel, nowMillis)

	if mode == Shadow {
		// Shadow mode logs the real decision but the host is never
		// steered: stdout is always empty.
		return Outcome{Verdict: verdict, Provider: providerName, Reason: reason}, nil
	}

	if verdict == engine.Allow || verdict == engine.Deny {
		return Outcome{
			Response:  engine.NewHookResponse(verdict, reason),
			HasOutput: true,
			Verdict:   verdict,
			Provider:  providerName,
			Reason:    reason,
		}, nil
	}
	return Outcome{Verdict: engine.Abstain}, nil
}

func (e *Engine) buildPipeline(opts Options, configHash string) *pipeline.Pipeline {
	var stages []provider.Provider

	if opts.CacheChecks && e.db != nil {
		stages = append(stages, &provider.CacheProvider{Store: e.db, ConfigHash: configHash})
	}

	for _, name := range e.cfg.Providers {
		switch name {
		case "chained-commands":
			if opts.AllowChainedCommands {
				stages = append(stages, &provider.ChainedCommandsProvider{Rules: e.rules})
			}
		case "claude":
			if backend := e.subprocessBackend(opts); backend != nil {
				stages = append(stages, &provider.LLMProvider{Backend: backend, Rules: e.rules, Log: e.log})
			}
		case "openrouter":
			if backend := e.httpBackend(opts); backend != nil {
				stages = append(stages, &provider.LLMProvider{Backend: backend, Rules: e.rules, Log: e.log})
			}
		case "cache":
			// Already placed first above when cache checks are on; an
			// explicit "cache" entry elsewhere in providers is a
			// configuration no-op rather than a duplicate stage.
		}
	}
	return pipeline.New(stages...)
}

func (e *Engine) subprocessBackend(opts Options) provider.Backend {
	backend := e.cfg.Claude
	if backend == nil {
		backend = e.cfg.LLM
	}
	if backend == nil {
		return nil
	}
	binary := backend.Provider
	if opts.LLMProvider != "" {
		binary = opts.LLMProvider
	}
	model := backend.Model
	if opts.LLMModel != "" {
		model = opts.LLMModel
	}
	timeout := parseBackendTimeout(backend.Timeout)
	if opts.LLMTimeout > 0 {
		timeout = opts.LLMTimeout
	}
	return &provider.SubprocessBackend{
		Binary:  binary,
		Model:   model,
		Timeout: timeout,
		CanDeny: backend.CanDeny,
	}
}

func (e *Engine) httpBackend(opts Options) provider.Backend {
	backend := e.cfg.OpenRouter
	if backend == nil {
		backend = e.cfg.LLM
	}
	if backend == nil {
		return nil
	}
	model := backend.Model
	if opts.LLMModel != "" {
		model = opts.LLMModel
	}
	timeout := parseBackendTimeout(backend.Timeout)
	if opts.LLMTimeout > 0 {
		timeout = opts.LLMTimeout
	}
	return &provider.HTTPBackend{
		Endpoint: backend.Endpoint,
		Model:    model,
		Timeout:  timeout,
		CanDeny:  backend.CanDeny,
	}
}

func parseBackendTimeout(s string) time.Duration {
	if s == "" {
		return 0
	}
	seconds, _, err := config.ParseRetentionSeconds(s)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// ConfigHash exposes the fingerprint Judge computes for opts, for
// cold-path commands (db gc) that need to know which cache rows are
// still current without re-running a decision.
func (e *Engine) ConfigHash(opts Options) string {
	return e.fingerprint(opts)
}

// fingerprint computes the config hash over the decision-affecting
// fields currently in effect (including CLI overrides, since those
// change the decision just as much as a config file edit would).
func (e *Engine) fingerprint(opts Options) string {
	allow, deny := e.rules.DebugInfo()

	var llmProvider, llmModel string
	canDeny := false
	if b := e.cfg.Claude; b != nil {
		llmProvider, llmModel, canDeny = b.Provider, b.Model, b.CanDeny
	} else if b := e.cfg.OpenRouter; b != nil {
		llmProvider, llmModel, canDeny = b.Provider, b.Model, b.CanDeny
	} else if b := e.cfg.LLM; b != nil {
		llmProvider, llmModel, canDeny = b.Provider, b.Model, b.CanDeny
	}
	if opts.LLMModel != "" {
		llmModel = opts.LLMModel
	}
	if opts.LLMProvider != "" {
		llmProvider = opts.LLMProvider
	}

	failOpen := e.cfg.FailOpen
	if opts.FailOpenOverride != nil {
		failOpen = *opts.FailOpenOverride
	}

	return store.ConfigHash(store.FingerprintInput{
		Allow:       allow,
		Deny:        deny,
		Providers:   e.cfg.Providers,
		FailOpen:    failOpen,
		LLMProvider: llmProvider,
		LLMModel:    llmModel,
		CanDeny:     canDeny,
	})
}

func (e *Engine) logRow(req *engine.PermissionRequest, verdict engine.Verdict, providerName, reason string, side *store.LLMSide, cached bool, duration time.Duration, modeLabel string, nowMillis int64) {
	if e.db == nil {
		return
	}
	entry := store.LogEntry{
		Timestamp:  nowMillis,
		SessionID:  req.SessionID,
		Cwd:        req.Cwd,
		ToolName:   req.ToolName,
		ToolInput:  req.CanonicalToolInput(),
		Input:      string(req.ToolInput),
		Decision:   string(verdict),
		Provider:   providerName,
		Reason:     reason,
		DurationMs: duration.Milliseconds(),
		Cached:     cached,
		Mode:       modeLabel,
	}
	// Best-effort: a logging failure must never mask the decision
	// already computed above.
	if _, err := e.db.AppendLog(entry, side); err != nil {
		e.log.Debugw("failed to append audit log row", "error", err)
	}
}

// ValidateRequest implements spec §3/§7's schema check at the ingress
// boundary: all top-level fields must be present strings, hook_event_name
// must equal "PermissionRequest", and tool_input must be present.
func ValidateRequest(req *engine.PermissionRequest) error {
	if req.HookEventName != "PermissionRequest" {
		return fmt.Errorf("%w: hook_event_name must be \"PermissionRequest\"", engine.ErrMalformedInput)
	}
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", engine.ErrMalformedInput)
	}
	if req.TranscriptPath == "" {
		return fmt.Errorf("%w: transcript_path is required", engine.ErrMalformedInput)
	}
	if req.Cwd == "" {
		return fmt.Errorf("%w: cwd is required", engine.ErrMalformedInput)
	}
	if req.PermissionMode == "" {
		return fmt.Errorf("%w: permission_mode is required", engine.ErrMalformedInput)
	}
	if req.ToolName == "" {
		return fmt.Errorf("%w: tool_name is required", engine.ErrMalformedInput)
	}
	if req.ToolInput == nil {
		return fmt.Errorf("%w: tool_input is required", engine.ErrMalformedInput)
	}
	return nil
}
