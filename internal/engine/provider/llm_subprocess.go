package provider

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"tyr/internal/engine"
)

// SubprocessBackend adjudicates by invoking a local model-runner binary.
// The command text and cwd are never interpolated into a shell string:
// the prompt is written to a private tempfile and the runner is exec'd
// with a fixed argv, matching spec §4.5's safety invariant.
type SubprocessBackend struct {
	// Binary is the model-runner executable, resolved via exec.LookPath
	// semantics (PATH search, or an absolute path).
	Binary  string
	Model   string
	Timeout time.Duration
	CanDeny bool
}

// Name identifies this backend in logs and cache rows.
func (b *SubprocessBackend) Name() string { return "llm-subprocess" }

// ModelName identifies the model asked to adjudicate, for a
// verbose-logging side row.
func (b *SubprocessBackend) ModelName() string { return b.Model }

// Adjudicate implements Backend.
func (b *SubprocessBackend) Adjudicate(ctx context.Context, p Prompt) (engine.Verdict, string, string, error) {
	p.CanDeny = b.CanDeny
	text, err := buildPromptText(p)
	if err != nil {
		return engine.Abstain, "", "", err
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	promptFile, err := os.CreateTemp("", "tyr-prompt-*.txt")
	if err != nil {
		return engine.Abstain, "", "", err
	}
	defer os.Remove(promptFile.Name())
	if err := promptFile.Chmod(0o600); err != nil {
		promptFile.Close()
		return engine.Abstain, "", "", err
	}
	if _, err := promptFile.WriteString(text); err != nil {
		promptFile.Close()
		return engine.Abstain, "", "", err
	}
	if err := promptFile.Close(); err != nil {
		return engine.Abstain, "", "", err
	}

	// Fixed argv, never a shell string: adversarial command text only
	// ever reaches the runner as file content, never as an exec argument
	// subject to shell interpretation.
	cmd := exec.CommandContext(runCtx, b.Binary, "--model", b.Model, "--prompt-file", promptFile.Name())
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		return engine.Abstain, "", "", err
	}

	verdict, reason, err := ParseModelResponse(stdout.String(), b.CanDeny)
	return verdict, reason, text, err
}
