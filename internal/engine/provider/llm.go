package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tyr/internal/engine"
)

// Prompt is everything an LLM backend needs to adjudicate one request.
// It is built once by LLMProvider.Evaluate and handed unchanged to
// whichever Backend is configured.
type Prompt struct {
	ToolName    string
	Command     string
	Cwd         string
	AllowRules  []string
	DenyRules   []string
	CanDeny     bool
	Transcript  []string // last N transcript messages, already truncated
}

// modelVerdict is the closed JSON shape the prompt instructs the model
// to reply with. Extra fields, wrong types, or a non-object response
// are all rejected by ParseModelResponse.
type modelVerdict struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Backend adjudicates a single prompt. Implementations must never hand
// the command or cwd to a shell: the subprocess backend passes them as
// argv elements or via a tempfile, never string-interpolated; the HTTP
// backend sends them as a JSON body field. Adjudicate also returns the
// literal rendered prompt text, so a verbose-logging caller can record
// exactly what was sent without rebuilding it.
type Backend interface {
	Name() string
	ModelName() string
	Adjudicate(ctx context.Context, p Prompt) (verdict engine.Verdict, reason string, renderedPrompt string, err error)
}

// LLMProvider adapts a Backend to the Provider interface, implementing
// the common contract of spec §4.5: abstain fast on non-Bash tools,
// empty commands, or backend errors.
type LLMProvider struct {
	Backend Backend
	// Rules, when set, supplies the current merged allow/deny patterns
	// so the model can see what the deterministic rules already cover.
	// Optional: a nil Rules sends an empty rule context.
	Rules RuleContext
	// Log, when set, records the wrapped ErrProviderFailed before this
	// provider abstains, so a subprocess crash or a non-2xx response is
	// diagnosable without ever failing the request. Optional.
	Log *zap.SugaredLogger
}

// RuleContext is the subset of the rule store the LLM provider reads
// for prompt context: the merged allow/deny pattern lists, never the
// patterns' matching logic.
type RuleContext interface {
	DebugInfo() (allow, deny []string)
}

// Name identifies this provider; it is the backend's own name so log
// rows distinguish "llm-subprocess" from "llm-http".
func (p *LLMProvider) Name() string { return p.Backend.Name() }

// Evaluate implements Provider.
func (p *LLMProvider) Evaluate(ctx context.Context, req *engine.PermissionRequest) engine.ProviderResult {
	if req.ToolName != "Bash" {
		return Abstain(p.Name())
	}
	command := req.BashCommand()
	if strings.TrimSpace(command) == "" {
		return Abstain(p.Name())
	}

	prompt := Prompt{
		ToolName: req.ToolName,
		Command:  command,
		Cwd:      req.Cwd,
	}
	if p.Rules != nil {
		prompt.AllowRules, prompt.DenyRules = p.Rules.DebugInfo()
	}

	verdict, reason, rendered, err := p.Backend.Adjudicate(ctx, prompt)
	if err != nil {
		// Any transport error, non-2xx, timeout, or process failure
		// becomes abstain here; the pipeline continues to the next
		// provider. Never escapes as a propagated error.
		if p.Log != nil {
			p.Log.Debugw("llm provider failed, abstaining", "provider", p.Name(), "error", fmt.Errorf("%w: %v", engine.ErrProviderFailed, err))
		}
		return Abstain(p.Name())
	}
	result := engine.ProviderResult{Verdict: verdict, Provider: p.Name(), Reason: reason}
	if verdict != engine.Abstain {
		result.Prompt = rendered
		result.Model = p.Backend.ModelName()
	}
	return result
}

// buildPromptText renders a Prompt into the literal text sent to the
// model. The command and cwd are embedded as JSON string values, never
// concatenated into anything that could be reinterpreted by a shell.
func buildPromptText(p Prompt) (string, error) {
	schema := `{"decision":"allow"|"deny","reason":string}`
	if !p.CanDeny {
		schema = `{"decision":"allow"|"abstain","reason":string}`
	}
	payload := struct {
		Tool       string   `json:"tool_name"`
		Command    string   `json:"command"`
		Cwd        string   `json:"cwd"`
		AllowRules []string `json:"allow_rules"`
		DenyRules  []string `json:"deny_rules"`
		Transcript []string `json:"transcript,omitempty"`
	}{
		Tool:       p.ToolName,
		Command:    p.Command,
		Cwd:        p.Cwd,
		AllowRules: p.AllowRules,
		DenyRules:  p.DenyRules,
		Transcript: p.Transcript,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("You are adjudicating whether a coding assistant may run a shell command.\n")
	b.WriteString("Request:\n")
	b.Write(body)
	b.WriteString("\n\nRespond with a single JSON object exactly matching this schema, ")
	b.WriteString("no markdown fences, no commentary: ")
	b.WriteString(schema)
	return b.String(), nil
}

// ParseModelResponse parses a model's raw text reply into a verdict,
// applying the canDeny normalisation: when canDeny is false, a "deny"
// answer is rewritten to "abstain" with its reason preserved (spec §9:
// this rule is authoritative regardless of which prompt grammar
// produced the answer). Any malformed, array-shaped, or wrong-typed
// response yields ("abstain", "", error).
func ParseModelResponse(raw string, canDeny bool) (engine.Verdict, string, error) {
	text := stripMarkdownFence(raw)

	var probe json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return engine.Abstain, "", err
	}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return engine.Abstain, "", errNotAnObject
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var v modelVerdict
	if err := dec.Decode(&v); err != nil {
		return engine.Abstain, "", err
	}

	switch engine.Verdict(v.Decision) {
	case engine.Allow:
		return engine.Allow, v.Reason, nil
	case engine.Deny:
		if !canDeny {
			return engine.Abstain, v.Reason, nil
		}
		return engine.Deny, v.Reason, nil
	case engine.Abstain:
		return engine.Abstain, v.Reason, nil
	default:
		return engine.Abstain, "", errUnknownDecision
	}
}

// stripMarkdownFence removes a surrounding ```json ... ``` or bare
// ``` ... ``` fence and trims whitespace.
func stripMarkdownFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
