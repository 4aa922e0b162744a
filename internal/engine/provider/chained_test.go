package provider

import (
	"context"
	"testing"

	"tyr/internal/engine"
)

type fixtureClassifier map[string]engine.Verdict

func (f fixtureClassifier) Classify(command string) engine.Verdict {
	if v, ok := f[command]; ok {
		return v
	}
	return engine.Abstain
}

func TestChainedCommandsDenyWins(t *testing.T) {
	rules := fixtureClassifier{
		"git status": engine.Allow,
		"rm -rf /":   engine.Deny,
	}
	p := &ChainedCommandsProvider{Rules: rules}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"git status && rm -rf /"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Deny {
		t.Fatalf("expected deny, got %v", result.Verdict)
	}
}

func TestChainedCommandsAllAllow(t *testing.T) {
	rules := fixtureClassifier{
		"git status": engine.Allow,
		"npm test":   engine.Allow,
	}
	p := &ChainedCommandsProvider{Rules: rules}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"git status && npm test"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Allow {
		t.Fatalf("expected allow, got %v", result.Verdict)
	}
}

func TestChainedCommandsAnyUnknownAbstains(t *testing.T) {
	rules := fixtureClassifier{"git status": engine.Allow}
	p := &ChainedCommandsProvider{Rules: rules}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"git status && curl example.com"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Abstain {
		t.Fatalf("expected abstain, got %v", result.Verdict)
	}
}

func TestChainedCommandsNonBashAbstains(t *testing.T) {
	p := &ChainedCommandsProvider{Rules: fixtureClassifier{}}
	req := &engine.PermissionRequest{ToolName: "Read", ToolInput: []byte(`{"file_path":"/tmp/x"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Abstain {
		t.Fatalf("expected abstain for non-Bash tool, got %v", result.Verdict)
	}
}

func TestChainedCommandsEmptyCommandAbstains(t *testing.T) {
	p := &ChainedCommandsProvider{Rules: fixtureClassifier{}}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"   "}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Abstain {
		t.Fatalf("expected abstain for empty/whitespace command, got %v", result.Verdict)
	}
}

func TestChainedCommandsPipeDenyWins(t *testing.T) {
	rules := fixtureClassifier{
		"echo hello": engine.Allow,
		"rm -rf /":   engine.Deny,
	}
	p := &ChainedCommandsProvider{Rules: rules}
	req := &engine.PermissionRequest{ToolName: "Bash", ToolInput: []byte(`{"command":"echo hello | rm -rf /"}`)}
	result := p.Evaluate(context.Background(), req)
	if result.Verdict != engine.Deny {
		t.Fatalf("expected deny, got %v", result.Verdict)
	}
}
