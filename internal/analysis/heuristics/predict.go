package heuristics

import (
	"math"
	"sort"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/analysis/trend"
	"taskquest/models"
)

// GoalPrediction estimates when a goal will reach its target
type GoalPrediction struct {
	GoalID        string     `json:"goal_id"`
	Progress      float64    `json:"progress"`
	PredictedDate *time.Time `json:"predicted_completion_date,omitempty"`
	OnTrack       bool       `json:"on_track"`
	Likelihood    float64    `json:"completion_likelihood"`
	Confidence    float64    `json:"confidence"`
	DailyRate     float64    `json:"daily_rate"`
}

// PredictGoal fits a line through daily cumulative progress and projects the
// day the goal's target is reached.
func PredictGoal(goal models.Goal, entries []models.GoalProgressEntry, now time.Time) (GoalPrediction, error) {
	pred := GoalPrediction{GoalID: goal.ID, Progress: goal.Progress()}
	if goal.IsAchieved() {
		done := now
		if goal.CompletedAt != nil {
			done = *goal.CompletedAt
		}
		pred.PredictedDate = &done
		pred.OnTrack = true
		pred.Likelihood = 1
		pred.Confidence = 1
		return pred, nil
	}

	sorted := make([]models.GoalProgressEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RecordedAt.Before(sorted[j].RecordedAt) })
	if len(sorted) < 2 {
		return pred, core.ErrInsufficientData
	}

	// one point per day holding the latest recorded value
	day := func(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC) }
	first := day(sorted[0].RecordedAt)
	last := day(sorted[len(sorted)-1].RecordedAt)
	days := int(last.Sub(first).Hours()/24) + 1
	if days < 2 {
		return pred, core.ErrInsufficientData
	}
	series := make([]float64, days)
	filled := make([]bool, days)
	for _, e := range sorted {
		i := int(day(e.RecordedAt).Sub(first).Hours() / 24)
		series[i] = e.Value
		filled[i] = true
	}
	for i := 1; i < days; i++ {
		if !filled[i] {
			series[i] = series[i-1]
		}
	}

	proj, err := trend.Forecast(series, 0)
	if err != nil {
		return pred, err
	}
	pred.DailyRate = proj.Slope
	pred.Confidence = metrics.ClampConfidence(proj.RSquared * math.Min(1, float64(days)/14))

	steps, ok := proj.StepsToReach(goal.TargetValue)
	if !ok {
		return pred, nil
	}
	eta := last.AddDate(0, 0, steps)
	pred.PredictedDate = &eta

	if goal.TargetDate == nil {
		pred.OnTrack = true
		pred.Likelihood = metrics.ClampConfidence(0.5 + pred.Confidence/2)
		return pred, nil
	}
	pred.OnTrack = !eta.After(*goal.TargetDate)
	remaining := goal.TargetDate.Sub(now).Hours() / 24
	needed := float64(steps)
	switch {
	case needed <= 0:
		pred.Likelihood = 1
	case remaining <= 0:
		pred.Likelihood = 0
	default:
		pred.Likelihood = metrics.ClampConfidence(remaining / needed)
	}
	return pred, nil
}
