// Package insight turns fetched rows into per-section insights by chaining
// aggregation, classification, trend detection and recommendation rules.
package insight

import (
	"fmt"
	"strings"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/aggregate"
	"taskquest/internal/analysis/classify"
	"taskquest/internal/analysis/recommend"
	"taskquest/models"
)

// Section names an insight family
type Section string

const (
	SectionProductivity Section = "productivity"
	SectionGoals        Section = "goals"
	SectionContacts     Section = "contacts"
	SectionWellness     Section = "wellness"
	SectionPredictive   Section = "predictive"
)

// AllSections lists every section in dashboard order
var AllSections = []Section{SectionProductivity, SectionGoals, SectionContacts, SectionWellness, SectionPredictive}

// CategoryInsufficientData marks an insight built from too few rows to classify
const CategoryInsufficientData = "insufficient_data"

// ParseSection accepts a section name; "dashboard" is an alias for productivity
func ParseSection(s string) (Section, error) {
	switch v := Section(strings.ToLower(strings.TrimSpace(s))); v {
	case "dashboard":
		return SectionProductivity, nil
	case SectionProductivity, SectionGoals, SectionContacts, SectionWellness, SectionPredictive:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownSection, s)
}

// Data is the input of one engine run. Range is the current period; rows
// should cover Range.Previous() as well so trends can be computed.
type Data struct {
	Range        core.DateRange
	Now          time.Time
	Tasks        []models.Task
	Goals        []models.Goal
	GoalProgress []models.GoalProgressEntry
	Contacts     []models.Contact
	Interactions []models.Interaction
	Wellness     []models.WellnessEntry
}

// RuleSource supplies the active rule set
type RuleSource interface {
	Get() *rules.RuleSet
}

// StaticRules adapts a fixed rule set to RuleSource
type StaticRules struct{ Set *rules.RuleSet }

// Get returns the wrapped rule set
func (s StaticRules) Get() *rules.RuleSet { return s.Set }

// Engine builds insights. It holds no per-user state and is safe for concurrent use.
type Engine struct {
	rules      RuleSource
	aggregator *aggregate.Aggregator
	byContact  *aggregate.Aggregator
	decisions  *classify.DecisionTable
	generator  *recommend.Generator
	loc        *time.Location
}

// NewEngine creates an engine reading rules from src. Buckets use loc, or UTC when nil.
func NewEngine(src RuleSource, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		rules:      src,
		aggregator: aggregate.New(aggregate.WithLocation(loc)),
		byContact:  aggregate.New(aggregate.WithLocation(loc), aggregate.WithCategoryTag(aggregate.ContactTag)),
		decisions:  classify.NewDecisionTable(),
		generator:  recommend.NewGenerator(),
		loc:        loc,
	}
}

// Location is the time zone buckets and streaks are computed in
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Rules returns the rule set currently in effect
func (e *Engine) Rules() *rules.RuleSet {
	return e.rules.Get()
}

// Build computes the insight for one section
func (e *Engine) Build(section Section, data Data) (metrics.Insight, error) {
	if err := data.Range.Validate(); err != nil {
		return metrics.Insight{}, err
	}
	if data.Now.IsZero() {
		data.Now = time.Now()
	}

	set := e.rules.Get()
	var (
		in  metrics.Insight
		err error
	)
	switch section {
	case SectionProductivity:
		in, err = e.productivity(set, data)
	case SectionGoals:
		in, err = e.goals(set, data)
	case SectionContacts:
		in, err = e.contacts(set, data)
	case SectionWellness:
		in, err = e.wellness(set, data)
	case SectionPredictive:
		in, err = e.predictive(set, data)
	default:
		return metrics.Insight{}, fmt.Errorf("%w: %q", core.ErrUnknownSection, section)
	}
	if err != nil {
		return metrics.Insight{}, err
	}
	in.Confidence = metrics.ClampConfidence(in.Confidence)
	if in.Recommendations == nil {
		in.Recommendations = []metrics.Recommendation{}
	}
	return in, nil
}

// Result is the outcome of one section in a multi-section run
type Result struct {
	Insight *metrics.Insight `json:"insight,omitempty"`
	Err     error            `json:"-"`
}

// BuildAll builds each section independently; one failing section does not
// affect the others.
func (e *Engine) BuildAll(sections []Section, data Data) map[Section]Result {
	out := make(map[Section]Result, len(sections))
	for _, s := range sections {
		in, err := e.Build(s, data)
		if err != nil {
			out[s] = Result{Err: err}
			continue
		}
		out[s] = Result{Insight: &in}
	}
	return out
}

// sampleConfidence grows linearly with n until full samples are available
func sampleConfidence(n, full int) float64 {
	if full <= 0 {
		return 0
	}
	return metrics.ClampConfidence(float64(n) / float64(full))
}

func days(r core.DateRange) int {
	d := int(r.To.Sub(r.From).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

func ptr[T any](v T) *T { return &v }
