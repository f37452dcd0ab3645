// Package recommend selects canned recommendations from ordered rule tables.
package recommend

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"taskquest/domain/metrics"
	"taskquest/domain/rules"
)

// State is the environment recommendation conditions are evaluated against.
// Fields that do not apply to a domain stay zero.
type State struct {
	Category  string
	Trend     string
	Magnitude float64
	Score     float64

	// wellness and burnout
	Stress          float64
	Energy          float64
	Workload        float64
	Sleep           float64
	Social          float64
	WorkLifeBalance float64
	Satisfaction    float64

	// goals
	ActiveGoals  int
	OverdueGoals int
	AvgProgress  float64

	// contacts
	Total           int
	DormantContacts int
	ActiveRatio     float64
	StrongRatio     float64

	// productivity
	OverdueTasks   int
	CompletionRate float64
	Streak         int
}

// WithScore fills Category and Score from a classified score
func (s State) WithScore(c metrics.ClassifiedScore) State {
	s.Category = c.Category
	s.Score = c.Raw
	return s
}

// WithTrend fills Trend and Magnitude from a trend result
func (s State) WithTrend(t metrics.TrendResult) State {
	s.Trend = string(t.Direction)
	s.Magnitude = t.Magnitude
	return s
}

// Generator evaluates recommendation tables. It is safe for concurrent use.
type Generator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewGenerator creates a generator with an empty program cache
func NewGenerator() *Generator {
	return &Generator{programs: make(map[string]*vm.Program)}
}

func (g *Generator) program(condition string) (*vm.Program, error) {
	g.mu.RLock()
	p, ok := g.programs[condition]
	g.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := expr.Compile(condition, expr.Env(State{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition '%s': %w", condition, err)
	}
	g.mu.Lock()
	g.programs[condition] = p
	g.mu.Unlock()
	return p, nil
}

// Generate returns every rule of the domain's table whose condition holds,
// in table order. An unknown domain yields no recommendations.
func (g *Generator) Generate(set *rules.RuleSet, domain string, state State) ([]metrics.Recommendation, error) {
	return g.Evaluate(set.Recommendations[domain], state)
}

// Evaluate applies a single rule table to state
func (g *Generator) Evaluate(table []rules.RecommendationRule, state State) ([]metrics.Recommendation, error) {
	out := make([]metrics.Recommendation, 0, len(table))
	for _, rule := range table {
		p, err := g.program(rule.When)
		if err != nil {
			return nil, err
		}
		res, err := expr.Run(p, state)
		if err != nil {
			return nil, fmt.Errorf("failed to run condition '%s': %w", rule.When, err)
		}
		if matched, _ := res.(bool); !matched {
			continue
		}
		out = append(out, metrics.Recommendation{
			Text:     rule.Text,
			Priority: priority(rule.Priority),
			Category: state.Category,
		})
	}
	return out, nil
}

// Validate compiles every condition in the rule set
func (g *Generator) Validate(set *rules.RuleSet) error {
	for domain, table := range set.Recommendations {
		for i, rule := range table {
			if _, err := g.program(rule.When); err != nil {
				return fmt.Errorf("recommendation %s[%d]: %w", domain, i, err)
			}
		}
	}
	return nil
}

func priority(p string) metrics.Priority {
	switch metrics.Priority(p) {
	case metrics.PriorityHigh, metrics.PriorityLow:
		return metrics.Priority(p)
	}
	return metrics.PriorityMedium
}
