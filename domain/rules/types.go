// Package rules holds the configurable tables that drive classification,
// keyword inference and recommendation selection.
package rules

import (
	"fmt"
	"math"
)

// Threshold is one band of a threshold table
type Threshold struct {
	LowerBound float64 `yaml:"lower_bound" json:"lower_bound"`
	Label      string  `yaml:"label" json:"label"`
	Color      string  `yaml:"color" json:"color"`
}

// ThresholdTable maps a continuous score to a label.
// Bands are scanned in order; the first band whose LowerBound <= score wins,
// otherwise the score falls through to Floor.
type ThresholdTable struct {
	Bands []Threshold `yaml:"bands" json:"bands"`
	Floor Threshold   `yaml:"floor" json:"floor"`
}

// Validate checks that bands are strictly descending and labelled
func (t ThresholdTable) Validate() error {
	if t.Floor.Label == "" {
		return fmt.Errorf("floor label is required")
	}
	prev := math.Inf(1)
	for i, b := range t.Bands {
		if b.Label == "" {
			return fmt.Errorf("band %d has no label", i)
		}
		if b.LowerBound >= prev {
			return fmt.Errorf("band %d (%s) lower bound %.3f is not below %.3f", i, b.Label, b.LowerBound, prev)
		}
		prev = b.LowerBound
	}
	return nil
}

// DecisionRule is one row of a first-match-wins decision table.
// When is an expression evaluated against the table's environment.
type DecisionRule struct {
	Label string `yaml:"label" json:"label"`
	When  string `yaml:"when" json:"when"`
	Color string `yaml:"color" json:"color"`
}

// KeywordRule assigns Outcome when any keyword occurs in the text
type KeywordRule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Outcome  string   `yaml:"outcome" json:"outcome"`
}

// KeywordTable is an ordered list of keyword rules with fallbacks
type KeywordTable struct {
	Rules           []KeywordRule `yaml:"rules" json:"rules"`
	LongTextLength  int           `yaml:"long_text_length" json:"long_text_length"`
	LongTextOutcome string        `yaml:"long_text_outcome" json:"long_text_outcome"`
	Default         string        `yaml:"default" json:"default"`
}

// RecommendationRule appends Text when When evaluates to true
type RecommendationRule struct {
	When     string `yaml:"when" json:"when"`
	Text     string `yaml:"text" json:"text"`
	Priority string `yaml:"priority" json:"priority"`
}

// BurnoutWeights are the coefficients of the burnout composite.
// Stress is inverted (10 - stress) before weighting.
type BurnoutWeights struct {
	Stress          float64 `yaml:"stress" json:"stress"`
	Energy          float64 `yaml:"energy" json:"energy"`
	WorkLifeBalance float64 `yaml:"work_life_balance" json:"work_life_balance"`
	Satisfaction    float64 `yaml:"satisfaction" json:"satisfaction"`
	Sleep           float64 `yaml:"sleep" json:"sleep"`
	Social          float64 `yaml:"social" json:"social"`
}

// Sum returns the total weight
func (w BurnoutWeights) Sum() float64 {
	return w.Stress + w.Energy + w.WorkLifeBalance + w.Satisfaction + w.Sleep + w.Social
}

// NetworkingWeights are the coefficients of the networking score
type NetworkingWeights struct {
	ActiveRatio      float64 `yaml:"active_ratio" json:"active_ratio"`
	StrongRatio      float64 `yaml:"strong_ratio" json:"strong_ratio"`
	FrequencyFactor  float64 `yaml:"frequency_factor" json:"frequency_factor"`
	FrequencyCeiling float64 `yaml:"frequency_ceiling" json:"frequency_ceiling"`
}

// Table names used in RuleSet.Thresholds
const (
	TableWellness        = "wellness"
	TableBurnout         = "burnout"
	TableProductivity    = "productivity"
	TableGoalAchievement = "goal_achievement"
	TableNetworking      = "networking"
)

// Recommendation domains used in RuleSet.Recommendations
const (
	DomainBurnout      = "burnout"
	DomainWellness     = "wellness"
	DomainGoals        = "goals"
	DomainContacts     = "contacts"
	DomainProductivity = "productivity"
)

// RuleSet is the complete set of tunable tables
type RuleSet struct {
	Thresholds         map[string]ThresholdTable       `yaml:"thresholds" json:"thresholds"`
	Relationship       []DecisionRule                  `yaml:"relationship" json:"relationship"`
	PriorityKeywords   KeywordTable                    `yaml:"priority_keywords" json:"priority_keywords"`
	ComplexityKeywords KeywordTable                    `yaml:"complexity_keywords" json:"complexity_keywords"`
	Recommendations    map[string][]RecommendationRule `yaml:"recommendations" json:"recommendations"`
	Burnout            BurnoutWeights                  `yaml:"burnout_weights" json:"burnout_weights"`
	Networking         NetworkingWeights               `yaml:"networking_weights" json:"networking_weights"`
	XPByComplexity     map[string]int                  `yaml:"xp_by_complexity" json:"xp_by_complexity"`
}

// Table returns the named threshold table
func (r *RuleSet) Table(name string) (ThresholdTable, error) {
	t, ok := r.Thresholds[name]
	if !ok {
		return ThresholdTable{}, fmt.Errorf("threshold table %q not configured", name)
	}
	return t, nil
}

// Validate checks every table in the rule set
func (r *RuleSet) Validate() error {
	for name, t := range r.Thresholds {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("threshold table %s: %w", name, err)
		}
	}
	if len(r.Relationship) == 0 {
		return fmt.Errorf("relationship table is empty")
	}
	for i, rule := range r.Relationship {
		if rule.Label == "" || rule.When == "" {
			return fmt.Errorf("relationship rule %d needs label and condition", i)
		}
	}
	for domain, list := range r.Recommendations {
		for i, rule := range list {
			if rule.When == "" || rule.Text == "" {
				return fmt.Errorf("recommendation %s[%d] needs condition and text", domain, i)
			}
		}
	}
	if r.Burnout.Sum() <= 0 {
		return fmt.Errorf("burnout weights must be positive")
	}
	return nil
}
