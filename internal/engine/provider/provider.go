// Package provider holds the pipeline stages that can each contribute a
// verdict: the decision cache, the chained-commands classifier, and the
// two LLM adjudication backends.
package provider

import (
	"context"

	"tyr/internal/engine"
)

// Provider is the common capability every pipeline stage implements: a
// name (carried with a terminal verdict for logging) and an evaluation
// method. There is no inheritance hierarchy here, only this one small
// interface — providers are a tagged variant over a shared capability.
type Provider interface {
	Name() string
	Evaluate(ctx context.Context, req *engine.PermissionRequest) engine.ProviderResult
}

// Abstain is the canonical "no opinion" result, reused by every
// provider that declines to answer.
func Abstain(name string) engine.ProviderResult {
	return engine.ProviderResult{Verdict: engine.Abstain, Provider: name}
}
