package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// Rule maps a merchant/keyword pattern to a budget bucket.
type Rule struct {
	Pattern  string
	Category common.Category
}

// DefaultRules is the built-in seed set for common Brazilian merchants and
// expense keywords. It is intentionally small; the cache and the external
// classifier carry the long tail.
var DefaultRules = []Rule{
	{"aluguel", common.CategoryEssential},
	{"condominio", common.CategoryEssential},
	{"mercado", common.CategoryEssential},
	{"supermercado", common.CategoryEssential},
	{"farmacia", common.CategoryEssential},
	{"energia", common.CategoryEssential},
	{"agua", common.CategoryEssential},
	{"internet", common.CategoryEssential},
	{"gasolina", common.CategoryEssential},
	{"plano de saude", common.CategoryEssential},
	{"ifood", common.CategoryWant},
	{"uber", common.CategoryWant},
	{"netflix", common.CategoryWant},
	{"spotify", common.CategoryWant},
	{"cinema", common.CategoryWant},
	{"restaurante", common.CategoryWant},
	{"viagem", common.CategoryWant},
	{"poupanca", common.CategorySaving},
	{"investimento", common.CategorySaving},
	{"tesouro direto", common.CategorySaving},
	{"cdb", common.CategorySaving},
	{"previdencia", common.CategorySaving},
}

// fuzzyMaxRank is the highest Levenshtein-based rank the fallback matcher
// accepts; -1 from RankMatch means no match at all.
const fuzzyMaxRank = 2

// Engine is the local pre-pass matcher: a single Aho-Corasick scan over all
// patterns, with a fuzzy fallback catching close variants ("netflx").
// It avoids classifier calls entirely for well-known descriptions.
type Engine struct {
	mu       sync.RWMutex
	matcher  *ahocorasick.Matcher
	patterns []Rule
}

// NewEngine builds the matcher from the given rules.
func NewEngine(rules []Rule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build reconstructs the matcher; callable again when rules change.
func (e *Engine) Build(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.patterns = make([]Rule, 0, len(rules))
	byteExprs := make([][]byte, 0, len(rules))
	for _, r := range rules {
		pattern := strings.ToLower(common.Fold(strings.TrimSpace(r.Pattern)))
		if pattern == "" {
			continue
		}
		e.patterns = append(e.patterns, Rule{Pattern: pattern, Category: r.Category})
		byteExprs = append(byteExprs, []byte(pattern))
	}

	if len(byteExprs) > 0 {
		e.matcher = ahocorasick.NewMatcher(byteExprs)
	} else {
		e.matcher = nil
	}
}

// Match returns the bucket for a description if any pattern matches.
// Exact substring matches win; otherwise the fuzzy fallback accepts a
// pattern within a small edit distance of some word of the description.
func (e *Engine) Match(description string) (common.Category, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return "", false
	}

	normalized := strings.ToLower(common.Fold(description))

	hits := e.matcher.Match([]byte(normalized))
	if len(hits) > 0 {
		// First pattern hit wins; patterns are ordered by specificity in
		// the seed set.
		idx := hits[0]
		if idx >= 0 && idx < len(e.patterns) {
			return e.patterns[idx].Category, true
		}
	}

	for _, word := range strings.Fields(normalized) {
		for _, p := range e.patterns {
			if strings.Contains(p.Pattern, " ") {
				continue // multi-word patterns only match exactly
			}
			rank := fuzzy.RankMatch(word, p.Pattern)
			if rank >= 0 && rank <= fuzzyMaxRank && levenshteinClose(word, p.Pattern) {
				return p.Category, true
			}
		}
	}

	return "", false
}

// PatternCount returns the number of loaded patterns.
func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

// levenshteinClose guards the fuzzy fallback against short-word false
// positives: the edit distance must be at most 1 and the word at least four
// runes.
func levenshteinClose(word, pattern string) bool {
	if len([]rune(word)) < 4 {
		return word == pattern
	}
	return fuzzy.LevenshteinDistance(word, pattern) <= 1
}
