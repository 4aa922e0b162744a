package provider

import (
	"context"
	"strings"

	"tyr/internal/engine"
	"tyr/internal/engine/shellwalk"
)

// Classifier is the subset of the rule store the chained-commands
// provider depends on, kept as an interface so tests can supply a
// fixture without touching the filesystem or a watcher goroutine.
type Classifier interface {
	Classify(command string) engine.Verdict
}

// ChainedCommandsProvider implements spec §4.4: decompose the Bash
// command into its simple commands and aggregate with deny-wins
// semantics — a chain is at least as dangerous as its most dangerous
// link, and all-allowed chains preserve the user's intent.
type ChainedCommandsProvider struct {
	Rules Classifier
}

// Name identifies this provider in logs and cache rows.
func (p *ChainedCommandsProvider) Name() string { return "chained-commands" }

// Evaluate implements Provider.
func (p *ChainedCommandsProvider) Evaluate(_ context.Context, req *engine.PermissionRequest) engine.ProviderResult {
	if req.ToolName != "Bash" {
		return Abstain(p.Name())
	}
	command := req.BashCommand()
	if strings.TrimSpace(command) == "" {
		return Abstain(p.Name())
	}

	simples := shellwalk.Decompose(command)
	if len(simples) == 0 {
		return Abstain(p.Name())
	}

	// worst tracks the highest-Priority verdict seen so far, so a single
	// deny link anywhere in the chain dominates; allAllow separately
	// requires every link to be an unconditional allow, since Priority
	// alone can't distinguish "all allow" from "some allow, some
	// unknown" (both would otherwise reduce to the same non-deny worst).
	worst := engine.Abstain
	worstCommand := ""
	allAllow := true
	for _, sc := range simples {
		v := p.Rules.Classify(sc.Command)
		if v.Priority() > worst.Priority() {
			worst = v
			worstCommand = sc.Command
		}
		if v != engine.Allow {
			allAllow = false
		}
	}

	if worst == engine.Deny {
		return engine.ProviderResult{
			Verdict:  engine.Deny,
			Provider: p.Name(),
			Reason:   "matched a deny rule: " + worstCommand,
		}
	}
	if allAllow {
		return engine.ProviderResult{Verdict: engine.Allow, Provider: p.Name()}
	}
	return Abstain(p.Name())
}
