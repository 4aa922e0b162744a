package provider

import (
	"context"

	"tyr/internal/engine"
	"tyr/internal/engine/store"
)

// CacheReader is the subset of the persistence layer the cache provider
// depends on.
type CacheReader interface {
	CacheGet(key store.CacheKey) (store.CacheEntry, bool)
}

// CacheProvider is always first in the pipeline when caching is
// enabled (spec §4.6): a hit is indistinguishable to downstream
// components from any other definitive verdict. It only ever reads; the
// write-back of a fresh terminal verdict happens at the ingress layer
// after the rest of the pipeline has run, since only the ingress layer
// knows the current config hash at write time in exactly the same form
// used for the lookup.
type CacheProvider struct {
	Store      CacheReader
	ConfigHash string
}

// Name identifies this provider in logs.
func (p *CacheProvider) Name() string { return "cache" }

// Evaluate implements Provider.
func (p *CacheProvider) Evaluate(_ context.Context, req *engine.PermissionRequest) engine.ProviderResult {
	key := store.CacheKey{
		ToolName:   req.ToolName,
		ToolInput:  req.CanonicalToolInput(),
		Cwd:        req.Cwd,
		ConfigHash: p.ConfigHash,
	}
	entry, ok := p.Store.CacheGet(key)
	if !ok {
		return Abstain(p.Name())
	}
	return engine.ProviderResult{
		Verdict:  entry.Decision,
		Provider: entry.Provider,
		Reason:   entry.Reason,
		Cached:   true,
	}
}
