package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// FingerprintInput holds exactly the decision-affecting fields spec
// §4.7 names. Fields that cannot change a decision (timeouts,
// endpoints, verbose flags) are deliberately absent.
type FingerprintInput struct {
	Allow       []string
	Deny        []string
	Providers   []string
	FailOpen    bool
	LLMProvider string
	LLMModel    string
	CanDeny     bool
}

// canonical is the stable, sorted-field JSON shape hashed to produce a
// config fingerprint. Equal FingerprintInput values always canonicalise
// identically regardless of slice input order, since Allow/Deny are
// sorted before hashing.
type canonical struct {
	Allow       []string `json:"allow"`
	Deny        []string `json:"deny"`
	Providers   []string `json:"providers"`
	FailOpen    bool     `json:"fail_open"`
	LLMProvider string   `json:"llm_provider"`
	LLMModel    string   `json:"llm_model"`
	CanDeny     bool     `json:"can_deny"`
}

// ConfigHash computes the 256-bit content digest of in's decision-
// affecting fields. Equal inputs yield equal hashes; a one-bit change
// in any included field changes the hash.
func ConfigHash(in FingerprintInput) string {
	allow := append([]string(nil), in.Allow...)
	deny := append([]string(nil), in.Deny...)
	sort.Strings(allow)
	sort.Strings(deny)

	c := canonical{
		Allow:       allow,
		Deny:        deny,
		Providers:   append([]string(nil), in.Providers...),
		FailOpen:    in.FailOpen,
		LLMProvider: in.LLMProvider,
		LLMModel:    in.LLMModel,
		CanDeny:     in.CanDeny,
	}
	// json.Marshal on a struct with fixed field order is already
	// deterministic; the only non-determinism to guard against was the
	// slice orderings handled above.
	encoded, err := json.Marshal(c)
	if err != nil {
		// c contains only strings, bools, and slices thereof: this
		// cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
