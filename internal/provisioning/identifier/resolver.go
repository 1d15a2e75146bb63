// Package identifier derives module codes and composes the business
// identifiers assigned to provisioned companies.
package identifier

import (
	"strings"
	"unicode"
)

// Source tells which path of the resolver produced a code.
type Source string

const (
	SourceRule    Source = "rule"
	SourceDerived Source = "derived"
	SourceDefault Source = "default"
)

// Rule maps a module name containing all Keywords to Code.
type Rule struct {
	Keywords []string
	Code     string
}

func (r Rule) matches(normalized string) bool {
	for _, kw := range r.Keywords {
		if !strings.Contains(normalized, kw) {
			return false
		}
	}
	return len(r.Keywords) > 0
}

// DefaultRules is ordered by precedence: compound rules come before the
// generic keyword they share.
var DefaultRules = []Rule{
	{Keywords: []string{"ADVANCE", "DNA"}, Code: "ADS"},
	{Keywords: []string{"ADVANCE", "SCREENING"}, Code: "ADS"},
	{Keywords: []string{"MOBILE", "DETAIL"}, Code: "MD"},
	{Keywords: []string{"DRUG", "SCREENING"}, Code: "DS"},
	{Keywords: []string{"DNA"}, Code: "DS"},
	{Keywords: []string{"SCREENING"}, Code: "DS"},
	{Keywords: []string{"CAR", "WASH"}, Code: "CW"},
	{Keywords: []string{"FLEET", "WASH"}, Code: "FW"},
}

// Resolution is the outcome of resolving a module name.
type Resolution struct {
	Code   string
	Source Source
}

// Resolver turns free-text module names into short module codes.
type Resolver struct {
	rules       []Rule
	defaultCode string
}

// NewResolver builds a resolver over rules. defaultCode is returned for
// names that yield fewer than two letters.
func NewResolver(rules []Rule, defaultCode string) *Resolver {
	return &Resolver{
		rules:       rules,
		defaultCode: strings.ToUpper(strings.TrimSpace(defaultCode)),
	}
}

// Resolve never fails.
func (r *Resolver) Resolve(name string) Resolution {
	normalized := strings.ToUpper(strings.TrimSpace(name))

	for _, rule := range r.rules {
		if rule.matches(normalized) {
			return Resolution{Code: rule.Code, Source: SourceRule}
		}
	}

	if code := derive(normalized); code != "" {
		return Resolution{Code: code, Source: SourceDerived}
	}
	return Resolution{Code: r.defaultCode, Source: SourceDefault}
}

// derive: one word yields its first two letters, several words yield
// their initials truncated to three. A single letter yields nothing.
func derive(normalized string) string {
	words := strings.FieldsFunc(normalized, func(c rune) bool {
		return !unicode.IsLetter(c)
	})

	switch len(words) {
	case 0:
		return ""
	case 1:
		runes := []rune(words[0])
		if len(runes) < 2 {
			return ""
		}
		return string(runes[:2])
	}

	var b strings.Builder
	for i, w := range words {
		if i == 3 {
			break
		}
		b.WriteRune([]rune(w)[0])
	}
	return b.String()
}
