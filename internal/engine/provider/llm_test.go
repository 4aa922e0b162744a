package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"tyr/internal/engine"
)

func TestParseModelResponsePlainJSON(t *testing.T) {
	v, reason, err := ParseModelResponse(`{"decision":"allow","reason":"looks safe"}`, true)
	if err != nil || v != engine.Allow || reason != "looks safe" {
		t.Fatalf("got %v %q %v", v, reason, err)
	}
}

func TestParseModelResponseMarkdownFence(t *testing.T) {
	v, _, err := ParseModelResponse("```json\n{\"decision\":\"deny\",\"reason\":\"dangerous\"}\n```", true)
	if err != nil || v != engine.Deny {
		t.Fatalf("got %v %v", v, err)
	}
}

func TestParseModelResponseCanDenyFalseRewritesDeny(t *testing.T) {
	v, reason, err := ParseModelResponse(`{"decision":"deny","reason":"dangerous"}`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != engine.Abstain {
		t.Fatalf("expected deny to be rewritten to abstain, got %v", v)
	}
	if reason != "dangerous" {
		t.Fatalf("expected reason preserved, got %q", reason)
	}
}

func TestParseModelResponseRejectsArray(t *testing.T) {
	_, _, err := ParseModelResponse(`[{"decision":"allow"}]`, true)
	if err == nil {
		t.Fatalf("expected error for array response")
	}
}

func TestParseModelResponseRejectsUnknownFields(t *testing.T) {
	_, _, err := ParseModelResponse(`{"decision":"allow","reason":"ok","extra":true}`, true)
	if err == nil {
		t.Fatalf("expected error for unexpected field")
	}
}

func TestParseModelResponseRejectsMissingDecision(t *testing.T) {
	_, _, err := ParseModelResponse(`{"reason":"ok"}`, true)
	if err == nil {
		t.Fatalf("expected error for missing decision")
	}
}

type erroringBackend struct{ err error }

func (b *erroringBackend) Name() string      { return "llm-fixture" }
func (b *erroringBackend) ModelName() string { return "fixture-model" }
func (b *erroringBackend) Adjudicate(ctx context.Context, p Prompt) (engine.Verdict, string, string, error) {
	return engine.Abstain, "", "", b.err
}

func TestLLMProviderAbstainsOnBackendError(t *testing.T) {
	p := &LLMProvider{Backend: &erroringBackend{err: errors.New("boom")}}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"rm -rf /"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Abstain {
		t.Fatalf("expected abstain, got %v", result.Verdict)
	}
}

func TestLLMProviderAbstainsOnNonBashTool(t *testing.T) {
	p := &LLMProvider{Backend: &erroringBackend{}}
	req := &engine.PermissionRequest{ToolName: "Read", ToolInput: []byte(`{"file_path":"/tmp"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Abstain {
		t.Fatalf("expected abstain, got %v", result.Verdict)
	}
}

func TestHTTPBackendAbstainsWithoutCredential(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	b := &HTTPBackend{Endpoint: "http://example.invalid", Model: "m", Timeout: time.Second}
	_, _, _, err := b.Adjudicate(context.Background(), Prompt{ToolName: "Bash", Command: "ls"})
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}
