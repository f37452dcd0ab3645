package heuristics

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"taskquest/domain/rules"
)

// Infer applies an ordered keyword table to text. The first rule with a
// keyword contained in the case-folded text wins; otherwise text longer than
// LongTextLength runes gets LongTextOutcome, and anything else the default.
func Infer(table rules.KeywordTable, text string) string {
	// Casers keep state and must not be shared across goroutines
	folded := cases.Fold().String(text)
	for _, rule := range table.Rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(folded, cases.Fold().String(kw)) {
				return rule.Outcome
			}
		}
	}
	if table.LongTextLength > 0 && table.LongTextOutcome != "" && utf8.RuneCountInString(text) > table.LongTextLength {
		return table.LongTextOutcome
	}
	return table.Default
}

// InferPriority returns urgent, high, medium or low for a task title and description
func InferPriority(set *rules.RuleSet, title, description string) string {
	return Infer(set.PriorityKeywords, title+" "+description)
}

// InferComplexity returns simple, medium or complex for a task title and description
func InferComplexity(set *rules.RuleSet, title, description string) string {
	return Infer(set.ComplexityKeywords, strings.TrimSpace(title+" "+description))
}

// XPFor returns the experience points awarded for a complexity level
func XPFor(set *rules.RuleSet, complexity string) int {
	if xp, ok := set.XPByComplexity[complexity]; ok {
		return xp
	}
	return set.XPByComplexity["medium"]
}
