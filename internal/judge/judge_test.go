package judge

import (
	"errors"
	"testing"

	"tyr/internal/engine"
)

func TestResolveModeRejectsAuditAndShadowTogether(t *testing.T) {
	_, err := resolveMode(Options{Audit: true, Shadow: true})
	if !errors.Is(err, engine.ErrFlagUsage) {
		t.Fatalf("expected ErrFlagUsage, got %v", err)
	}
}

func TestResolveModeDefaultsToNormal(t *testing.T) {
	mode, err := resolveMode(Options{})
	if err != nil || mode != Normal {
		t.Fatalf("expected Normal, got %v %v", mode, err)
	}
}

func TestResolveModeAudit(t *testing.T) {
	mode, err := resolveMode(Options{Audit: true})
	if err != nil || mode != Audit {
		t.Fatalf("expected Audit, got %v %v", mode, err)
	}
}

func TestResolveModeShadow(t *testing.T) {
	mode, err := resolveMode(Options{Shadow: true})
	if err != nil || mode != Shadow {
		t.Fatalf("expected Shadow, got %v %v", mode, err)
	}
}

func validRequest() *engine.PermissionRequest {
	return &engine.PermissionRequest{
		SessionID:      "sess-1",
		TranscriptPath: "/tmp/transcript.jsonl",
		Cwd:            "/tmp",
		PermissionMode: "default",
		HookEventName:  "PermissionRequest",
		ToolName:       "Bash",
		ToolInput:      []byte(`{"command":"ls"}`),
	}
}

func TestValidateRequestAcceptsCompleteRequest(t *testing.T) {
	if err := ValidateRequest(validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequestRejectsMissingTopLevelFields(t *testing.T) {
	cases := map[string]func(*engine.PermissionRequest){
		"hook_event_name": func(r *engine.PermissionRequest) { r.HookEventName = "" },
		"session_id":      func(r *engine.PermissionRequest) { r.SessionID = "" },
		"transcript_path": func(r *engine.PermissionRequest) { r.TranscriptPath = "" },
		"cwd":             func(r *engine.PermissionRequest) { r.Cwd = "" },
		"permission_mode": func(r *engine.PermissionRequest) { r.PermissionMode = "" },
		"tool_name":       func(r *engine.PermissionRequest) { r.ToolName = "" },
		"tool_input":      func(r *engine.PermissionRequest) { r.ToolInput = nil },
	}
	for name, mutate := range cases {
		req := validRequest()
		mutate(req)
		if err := ValidateRequest(req); !errors.Is(err, engine.ErrMalformedInput) {
			t.Fatalf("%s: expected ErrMalformedInput, got %v", name, err)
		}
	}
}
