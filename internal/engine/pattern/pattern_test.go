package pattern

import "testing"

func TestCompileMatch(t *testing.T) {
	cases := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		{"git *", "git status", true},
		{"git *", "git", false},
		{"git push *", "git push origin main", true},
		{"git push *", "git push --force origin main", true},
		{"npm test", "npm test", true},
		{"npm test", "npm test extra", false},
		{"rm *", "rm -rf /", true},
		{"a.b", "aXb", false},
		{"a.b", "a.b", true},
	}
	for _, tc := range cases {
		got := Compile(tc.pattern).Match(tc.candidate)
		if got != tc.want {
			t.Errorf("Compile(%q).Match(%q) = %v, want %v", tc.pattern, tc.candidate, got, tc.want)
		}
	}
}

func TestCollapsesConsecutiveStars(t *testing.T) {
	p := Compile("git***push")
	if !p.Match("gitXXXXXpush") {
		t.Fatalf("expected collapsed wildcard to still match")
	}
}

func TestAnyMatch(t *testing.T) {
	c := NewCache()
	if !AnyMatch(c, []string{"npm *", "git *"}, "git status") {
		t.Fatalf("expected a match")
	}
	if AnyMatch(c, []string{"npm *"}, "git status") {
		t.Fatalf("expected no match")
	}
}

func TestRegexMetacharsAreLiteral(t *testing.T) {
	p := Compile("a+b?c[d]")
	if !p.Match("a+b?c[d]") {
		t.Fatalf("expected literal metacharacters to match themselves")
	}
	if p.Match("aab") {
		t.Fatalf("regex metacharacters must not be interpreted")
	}
}
