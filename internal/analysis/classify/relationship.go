package classify

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"taskquest/domain/metrics"
	"taskquest/domain/rules"
)

// RelationshipEnv is the environment relationship conditions are evaluated against
type RelationshipEnv struct {
	DaysSinceContact     float64
	InteractionFrequency float64
}

// Relationship strengths produced by the default table
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
	StrengthDormant  = "dormant"
)

// DecisionTable evaluates first-match-wins rules. Compiled programs are
// cached per condition so a reloaded rule set only compiles new expressions.
type DecisionTable struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewDecisionTable creates an empty decision table evaluator
func NewDecisionTable() *DecisionTable {
	return &DecisionTable{programs: make(map[string]*vm.Program)}
}

func (d *DecisionTable) program(condition string) (*vm.Program, error) {
	d.mu.RLock()
	p, ok := d.programs[condition]
	d.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := expr.Compile(condition, expr.Env(RelationshipEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition '%s': %w", condition, err)
	}
	d.mu.Lock()
	d.programs[condition] = p
	d.mu.Unlock()
	return p, nil
}

// Evaluate returns the first rule whose condition holds for env. When no rule
// matches, the last rule is used as the table's fall-through.
func (d *DecisionTable) Evaluate(table []rules.DecisionRule, env RelationshipEnv) (rules.DecisionRule, error) {
	if len(table) == 0 {
		return rules.DecisionRule{}, fmt.Errorf("decision table is empty")
	}
	for _, rule := range table {
		p, err := d.program(rule.When)
		if err != nil {
			return rules.DecisionRule{}, err
		}
		out, err := expr.Run(p, env)
		if err != nil {
			return rules.DecisionRule{}, fmt.Errorf("failed to run condition '%s': %w", rule.When, err)
		}
		if matched, _ := out.(bool); matched {
			return rule, nil
		}
	}
	return table[len(table)-1], nil
}

// Relationship classifies a contact by recency and frequency of interaction
func (d *DecisionTable) Relationship(table []rules.DecisionRule, daysSinceContact, frequency float64) (metrics.ClassifiedScore, error) {
	rule, err := d.Evaluate(table, RelationshipEnv{DaysSinceContact: daysSinceContact, InteractionFrequency: frequency})
	if err != nil {
		return metrics.ClassifiedScore{}, err
	}
	return metrics.ClassifiedScore{Raw: daysSinceContact, Category: rule.Label, ColorHint: rule.Color}, nil
}
