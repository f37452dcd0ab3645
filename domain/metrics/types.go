package metrics

import (
	"time"
)

// Granularity is the bucket size used when aggregating samples
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// OtherCategory collects samples whose category tag is missing
const OtherCategory = "other"

// MetricSample is one numeric observation derived from a raw domain row.
// Samples live for a single computation pass.
type MetricSample struct {
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Tag returns the tag value or "" when absent
func (s MetricSample) Tag(key string) string {
	if s.Tags == nil {
		return ""
	}
	return s.Tags[key]
}

// AggregateWindow summarizes the samples that fall in one time bucket
type AggregateWindow struct {
	Start        time.Time      `json:"window_start"`
	End          time.Time      `json:"window_end"`
	Count        int            `json:"count"`
	Sum          float64        `json:"sum"`
	Average      float64        `json:"average"`
	Distribution map[string]int `json:"distribution_by_category"`
}

// ClassifiedScore pairs a raw score with its threshold-table category
type ClassifiedScore struct {
	Raw       float64 `json:"raw_score"`
	Category  string  `json:"category"`
	ColorHint string  `json:"color_hint"`
}

// Direction of a trend between two adjacent windows
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// TrendResult compares a current period with the previous one
type TrendResult struct {
	Direction Direction `json:"direction"`
	Magnitude float64   `json:"magnitude"`
}

// StableTrend is returned whenever there is not enough history to compare
var StableTrend = TrendResult{Direction: Stable, Magnitude: 0}

// Priority of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities from high (0) to low (2); unknown values rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Recommendation is a canned piece of advice selected from a rule table
type Recommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Category string   `json:"applicable_category"`
}

// Insight is the per-section output of the engine
type Insight struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Confidence      float64            `json:"confidence"`
	Score           *ClassifiedScore   `json:"score,omitempty"`
	Trend           *TrendResult       `json:"trend,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// ClampConfidence forces a confidence value into [0, 1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
