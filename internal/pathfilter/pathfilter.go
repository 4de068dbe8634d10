// Package pathfilter matches folder paths and file names against exclusion rules.
//
// Plain rules are case-sensitive substrings and are compiled once into an
// Aho-Corasick automaton, so a candidate is scanned a single time no matter
// how many rules there are. Rules prefixed with "re:" are regular expressions
// and are joined into one alternation.
package pathfilter

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexPrefix marks a rule as a regular expression.
const RegexPrefix = "re:"

// Matcher reports whether a candidate contains any rule.
type Matcher struct {
	rules   []string
	literal *automaton
	pattern *regexp.Regexp
}

// New compiles rules into a Matcher. Empty rules are ignored.
func New(rules []string) (*Matcher, error) {
	m := &Matcher{}

	var literals, patterns []string
	for _, rule := range rules {
		if strings.TrimSpace(rule) == "" {
			continue
		}
		m.rules = append(m.rules, rule)
		if expr, ok := strings.CutPrefix(rule, RegexPrefix); ok {
			if _, err := regexp.Compile(expr); err != nil {
				return nil, fmt.Errorf("invalid exclusion rule %q: %w", rule, err)
			}
			patterns = append(patterns, "(?:"+expr+")")
			continue
		}
		literals = append(literals, rule)
	}

	if len(literals) > 0 {
		m.literal = build(literals)
	}
	if len(patterns) > 0 {
		m.pattern = regexp.MustCompile(strings.Join(patterns, "|"))
	}

	return m, nil
}

// MustNew is New for static rule sets; it panics on an invalid regex rule.
func MustNew(rules []string) *Matcher {
	m, err := New(rules)
	if err != nil {
		panic(err)
	}
	return m
}

// Empty reports whether the matcher has no rules.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.rules) == 0
}

// Rules returns the rules in configuration order.
func (m *Matcher) Rules() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.rules...)
}

// IsExcluded reports whether candidate contains any rule.
func (m *Matcher) IsExcluded(candidate string) bool {
	_, ok := m.Match(candidate)
	return ok
}

// Match returns the first literal rule found in candidate, or the matched
// text of a regex rule.
func (m *Matcher) Match(candidate string) (string, bool) {
	if m.Empty() {
		return "", false
	}
	if m.literal != nil {
		if rule, ok := m.literal.find(candidate); ok {
			return rule, true
		}
	}
	if m.pattern != nil {
		if loc := m.pattern.FindStringIndex(candidate); loc != nil {
			return candidate[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// Filter returns the candidates that are not excluded.
func (m *Matcher) Filter(candidates []string) []string {
	var kept []string
	for _, c := range candidates {
		if !m.IsExcluded(c) {
			kept = append(kept, c)
		}
	}
	return kept
}
