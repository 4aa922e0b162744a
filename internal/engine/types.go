// Package engine holds the shapes shared by every component of the
// decision engine: the wire types exchanged with the host, the verdict
// vocabulary, and the merged-policy model.
package engine

import "encoding/json"

// Verdict is the three-valued outcome of any provider or of the pipeline
// as a whole.
type Verdict string

const (
	Allow   Verdict = "allow"
	Deny    Verdict = "deny"
	Abstain Verdict = "abstain"
)

// Priority orders verdicts so that deny strictly dominates allow, which
// in turn dominates abstain. Used to aggregate classifications across a
// chained command.
func (v Verdict) Priority() int {
	switch v {
	case Deny:
		return 2
	case Allow:
		return 1
	default:
		return 0
	}
}

// PermissionRequest is the JSON object the host writes to tyr's stdin.
type PermissionRequest struct {
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path"`
	Cwd            string          `json:"cwd"`
	PermissionMode string          `json:"permission_mode"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input"`
}

// BashCommand extracts the `command` string from tool_input when
// ToolName is "Bash". Returns "" if tool_input has no string command
// field.
func (r *PermissionRequest) BashCommand() string {
	if r.ToolName != "Bash" || len(r.ToolInput) == 0 {
		return ""
	}
	var v struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(r.ToolInput, &v); err != nil {
		return ""
	}
	return v.Command
}

// CanonicalToolInput implements spec §4.7's canonical(tool_input): the
// Bash command string for Bash tools, falling back to a stable JSON
// re-encoding (sorted map keys, which encoding/json already guarantees
// for map[string]any) for every other tool.
func (r *PermissionRequest) CanonicalToolInput() string {
	if r.ToolName == "Bash" {
		return r.BashCommand()
	}
	if len(r.ToolInput) == 0 {
		return ""
	}
	var generic map[string]any
	if err := json.Unmarshal(r.ToolInput, &generic); err != nil {
		return string(r.ToolInput)
	}
	stable, err := json.Marshal(generic)
	if err != nil {
		return string(r.ToolInput)
	}
	return string(stable)
}

// Decision is the payload of a HookResponse.
type Decision struct {
	Behavior string `json:"behavior"`
	Message  string `json:"message,omitempty"`
}

// HookSpecificOutput wraps Decision with the event name the host expects.
type HookSpecificOutput struct {
	HookEventName string   `json:"hookEventName"`
	Decision      Decision `json:"decision"`
}

// HookResponse is written to stdout only when the engine reaches a
// terminal allow/deny verdict.
type HookResponse struct {
	HookSpecificOutput HookSpecificOutput `json:"hookSpecificOutput"`
}

// NewHookResponse builds the wire response for a terminal verdict.
// Panics if called with Abstain; callers must check for a terminal
// verdict first.
func NewHookResponse(v Verdict, reason string) HookResponse {
	if v != Allow && v != Deny {
		panic("engine: NewHookResponse requires a terminal verdict")
	}
	return HookResponse{
		HookSpecificOutput: HookSpecificOutput{
			HookEventName: "PermissionRequest",
			Decision: Decision{
				Behavior: string(v),
				Message:  reason,
			},
		},
	}
}

// Policy is the merged, order-preserving pair of Bash glob patterns
// produced by the rule store. It is derived, never stored.
type Policy struct {
	Allow []string
	Deny  []string
}

// ProviderResult is the outcome any pipeline stage produces. Prompt and
// Model are only ever set by an LLM provider's terminal verdict, so the
// ingress layer can pair a verbose-logging side row to the winning log
// row without re-deriving what was sent to the model.
type ProviderResult struct {
	Verdict  Verdict
	Provider string
	Reason   string
	Cached   bool
	Prompt   string
	Model    string
}
