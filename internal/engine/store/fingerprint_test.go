package store

import "testing"

func baseInput() FingerprintInput {
	return FingerprintInput{
		Allow:       []string{"git *", "npm test"},
		Deny:        []string{"rm *"},
		Providers:   []string{"cache", "chained-commands"},
		FailOpen:    false,
		LLMProvider: "openrouter",
		LLMModel:    "gpt",
		CanDeny:     true,
	}
}

func TestConfigHashStableForEqualInputs(t *testing.T) {
	a := ConfigHash(baseInput())
	b := ConfigHash(baseInput())
	if a != b {
		t.Fatalf("expected equal inputs to hash equally, got %s != %s", a, b)
	}
}

func TestConfigHashOrderIndependentWithinList(t *testing.T) {
	in1 := baseInput()
	in2 := baseInput()
	in2.Allow = []string{"npm test", "git *"}
	if ConfigHash(in1) != ConfigHash(in2) {
		t.Fatalf("expected allow-list order to not affect the hash")
	}
}

func TestConfigHashChangesOnFieldChange(t *testing.T) {
	base := ConfigHash(baseInput())

	denyChanged := baseInput()
	denyChanged.Deny = append(denyChanged.Deny, "curl *")
	if ConfigHash(denyChanged) == base {
		t.Fatalf("expected deny-list change to change the hash")
	}

	failOpenChanged := baseInput()
	failOpenChanged.FailOpen = true
	if ConfigHash(failOpenChanged) == base {
		t.Fatalf("expected failOpen change to change the hash")
	}

	modelChanged := baseInput()
	modelChanged.LLMModel = "other-model"
	if ConfigHash(modelChanged) == base {
		t.Fatalf("expected model change to change the hash")
	}
}
