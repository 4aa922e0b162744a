// Package pipeline runs an ordered list of providers, stopping at the
// first terminal verdict and isolating provider failures so a single
// broken stage never fails the whole request.
package pipeline

import (
	"context"

	"tyr/internal/engine"
	"tyr/internal/engine/provider"
)

// Pipeline is an ordered, declared list of providers.
type Pipeline struct {
	Providers []provider.Provider
}

// New builds a Pipeline from providers in declared order.
func New(providers ...provider.Provider) *Pipeline {
	return &Pipeline{Providers: providers}
}

// Run consults each provider in order. The first allow or deny wins and
// terminates the pipeline, carrying the provider's name and reason;
// abstain continues to the next provider; a panic inside a provider is
// recovered and treated as abstain (fail-through, never fail-the-
// request). If every provider abstains, the result is a nil-provider
// abstain.
func (p *Pipeline) Run(ctx context.Context, req *engine.PermissionRequest) engine.ProviderResult {
	for _, prov := range p.Providers {
		result := evaluateSafely(prov, ctx, req)
		if result.Verdict != engine.Abstain {
			return result
		}
	}
	return engine.ProviderResult{Verdict: engine.Abstain}
}

// evaluateSafely calls prov.Evaluate, recovering any panic into an
// abstain result so one misbehaving provider cannot fail the request.
func evaluateSafely(prov provider.Provider, ctx context.Context, req *engine.PermissionRequest) (result engine.ProviderResult) {
	defer func() {
		if recover() != nil {
			result = engine.ProviderResult{Verdict: engine.Abstain, Provider: prov.Name()}
		}
	}()
	return prov.Evaluate(ctx, req)
}
