package aggregate

import (
	"taskquest/domain/metrics"
	"taskquest/models"
)

// FromTasks turns completed tasks into samples stamped at completion time.
// The value is the task's XP reward, or xpByComplexity[complexity] when the
// row carries none. Tags: category (complexity), priority, project.
func FromTasks(tasks []models.Task, xpByComplexity map[string]int) []metrics.MetricSample {
	samples := make([]metrics.MetricSample, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		xp := t.XPReward
		if xp <= 0 {
			xp = xpByComplexity[t.Complexity]
		}
		samples = append(samples, metrics.MetricSample{
			EntityID:  t.ID,
			Timestamp: *t.CompletedAt,
			Value:     float64(xp),
			Tags: map[string]string{
				DefaultCategoryTag: t.Complexity,
				"priority":         t.Priority,
				"project":          t.ProjectID,
			},
		})
	}
	return samples
}

// WellnessScorer maps a check-in to a single 0-10 value
type WellnessScorer func(models.WellnessEntry) float64

// FromWellness turns check-ins into samples valued by score. A nil score
// uses the unweighted mean of the positive dimensions and inverted stress.
func FromWellness(entries []models.WellnessEntry, score WellnessScorer) []metrics.MetricSample {
	if score == nil {
		score = meanWellness
	}
	samples := make([]metrics.MetricSample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, metrics.MetricSample{
			EntityID:  e.ID,
			Timestamp: e.RecordedAt,
			Value:     score(e),
		})
	}
	return samples
}

func meanWellness(e models.WellnessEntry) float64 {
	return ((10 - e.Stress) + e.Energy + e.WorkLifeBalance + e.Satisfaction + e.Sleep + e.Social) / 6
}

// ContactTag carries the contact ID on interaction samples
const ContactTag = "contact"

// FromInteractions yields one sample of value 1 per interaction, tagged with
// its kind and contact.
func FromInteractions(interactions []models.Interaction) []metrics.MetricSample {
	samples := make([]metrics.MetricSample, 0, len(interactions))
	for _, in := range interactions {
		samples = append(samples, metrics.MetricSample{
			EntityID:  in.ContactID,
			Timestamp: in.OccurredAt,
			Value:     1,
			Tags: map[string]string{
				DefaultCategoryTag: in.Kind,
				ContactTag:         in.ContactID,
			},
		})
	}
	return samples
}

// FromGoalProgress turns progress updates into samples valued by the update
func FromGoalProgress(entries []models.GoalProgressEntry) []metrics.MetricSample {
	samples := make([]metrics.MetricSample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, metrics.MetricSample{
			EntityID:  e.GoalID,
			Timestamp: e.RecordedAt,
			Value:     e.Value,
			Tags:      map[string]string{"goal": e.GoalID},
		})
	}
	return samples
}
