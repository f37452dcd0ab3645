// Package heuristics holds the weighted scores and keyword rules used when a
// backend procedure is unavailable or the value is computed locally.
package heuristics

import (
	"math"

	"taskquest/domain/rules"
	"taskquest/models"
)

// BurnoutScore is the weighted wellbeing composite on a 0-10 scale; lower
// values mean higher burnout risk. Stress is inverted before weighting.
func BurnoutScore(e models.WellnessEntry, w rules.BurnoutWeights) float64 {
	return w.Stress*(10-e.Stress) +
		w.Energy*e.Energy +
		w.WorkLifeBalance*e.WorkLifeBalance +
		w.Satisfaction*e.Satisfaction +
		w.Sleep*e.Sleep +
		w.Social*e.Social
}

// AverageEntry averages every dimension of the given check-ins.
// ok is false when entries is empty.
func AverageEntry(entries []models.WellnessEntry) (avg models.WellnessEntry, ok bool) {
	if len(entries) == 0 {
		return avg, false
	}
	for _, e := range entries {
		avg.Stress += e.Stress
		avg.Energy += e.Energy
		avg.WorkLifeBalance += e.WorkLifeBalance
		avg.Satisfaction += e.Satisfaction
		avg.Sleep += e.Sleep
		avg.Social += e.Social
		avg.Workload += e.Workload
	}
	n := float64(len(entries))
	avg.Stress /= n
	avg.Energy /= n
	avg.WorkLifeBalance /= n
	avg.Satisfaction /= n
	avg.Sleep /= n
	avg.Social /= n
	avg.Workload /= n
	return avg, true
}

// NetworkStats summarizes a contact list
type NetworkStats struct {
	Total        int     `json:"total"`
	Active       int     `json:"active"`
	Strong       int     `json:"strong"`
	Dormant      int     `json:"dormant"`
	AvgFrequency float64 `json:"avg_frequency"`
}

// ActiveRatio is Active/Total, or 0 for an empty network
func (s NetworkStats) ActiveRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Active) / float64(s.Total)
}

// StrongRatio is Strong/Total, or 0 for an empty network
func (s NetworkStats) StrongRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Strong) / float64(s.Total)
}

// NetworkingScore is activeRatio*40 + strongRatio*35 + min(25, avgFrequency*5)
// with the default weights, clamped to [0, 100].
func NetworkingScore(s NetworkStats, w rules.NetworkingWeights) float64 {
	score := s.ActiveRatio()*w.ActiveRatio +
		s.StrongRatio()*w.StrongRatio +
		math.Min(w.FrequencyCeiling, s.AvgFrequency*w.FrequencyFactor)
	return math.Max(0, math.Min(100, score))
}
