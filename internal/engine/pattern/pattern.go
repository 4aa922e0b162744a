// Package pattern compiles Tyr's rule-pattern grammar — a literal string
// in which every run of one or more '*' means "match any sequence of
// characters", everything else is literal — into anchored regular
// expressions, and caches the compiled form per pattern string.
package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// Pattern is a compiled rule pattern ready for repeated matching.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile converts raw into an anchored regular expression: every
// non-'*' rune is escaped literally, consecutive '*' collapse to a
// single wildcard (forbidding catastrophic backtracking from patterns
// like "****...*"), and the whole pattern is anchored to match the
// entire candidate string.
func Compile(raw string) *Pattern {
	var b strings.Builder
	b.WriteByte('^')
	runes := []rune(raw)
	i := 0
	for i < len(runes) {
		if runes[i] == '*' {
			b.WriteString(".*")
			for i < len(runes) && runes[i] == '*' {
				i++
			}
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(runes[i])))
		i++
	}
	b.WriteByte('$')
	// regexp.MustCompile is safe here: the construction above only ever
	// emits QuoteMeta output and ".*", both always valid regex syntax.
	return &Pattern{raw: raw, re: regexp.MustCompile(b.String())}
}

// Match reports whether candidate matches the entire pattern. Matching
// is case-sensitive and whitespace-sensitive.
func (p *Pattern) Match(candidate string) bool {
	return p.re.MatchString(candidate)
}

// String returns the original, uncompiled pattern text.
func (p *Pattern) String() string { return p.raw }

// Cache memoises compiled patterns across a rule-store snapshot so a
// chained command with many simple commands does not recompile the same
// allow/deny patterns on every sub-command.
type Cache struct {
	mu    sync.Mutex
	byRaw map[string]*Pattern
}

// NewCache returns an empty pattern cache.
func NewCache() *Cache {
	return &Cache{byRaw: make(map[string]*Pattern)}
}

// Get returns the compiled pattern for raw, compiling and caching it on
// first use.
func (c *Cache) Get(raw string) *Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.byRaw[raw]; ok {
		return p
	}
	p := Compile(raw)
	c.byRaw[raw] = p
	return p
}

// AnyMatch reports whether candidate matches any of patterns, compiling
// through cache (which may be nil, in which case patterns compile
// uncached).
func AnyMatch(cache *Cache, patterns []string, candidate string) bool {
	for _, raw := range patterns {
		var p *Pattern
		if cache != nil {
			p = cache.Get(raw)
		} else {
			p = Compile(raw)
		}
		if p.Match(candidate) {
			return true
		}
	}
	return false
}
