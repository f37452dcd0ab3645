package heuristics

import (
	"math"
	"time"

	"taskquest/models"
)

// DefaultTargetXPPerDay is the XP velocity that earns the full velocity component
const DefaultTargetXPPerDay = 100.0

// ProductivityInputs are the task counts a productivity score is derived from
type ProductivityInputs struct {
	Total     int     `json:"total_tasks"`
	Completed int     `json:"completed_tasks"`
	OnTime    int     `json:"on_time_tasks"`
	Overdue   int     `json:"overdue_tasks"`
	XP        float64 `json:"xp_earned"`
	Days      int     `json:"days"`
}

// CompletionRate is Completed/Total in [0, 1]
func (p ProductivityInputs) CompletionRate() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// OnTimeRate is OnTime/Completed in [0, 1]
func (p ProductivityInputs) OnTimeRate() float64 {
	if p.Completed == 0 {
		return 0
	}
	return float64(p.OnTime) / float64(p.Completed)
}

// XPPerDay is the average XP earned per day of the period
func (p ProductivityInputs) XPPerDay() float64 {
	if p.Days <= 0 {
		return 0
	}
	return p.XP / float64(p.Days)
}

// ProductivityInputsFromTasks counts tasks that were created, due or completed
// inside [from, to), skipping tasks completed before from. xpFor resolves XP for
// completed tasks without a reward.
func ProductivityInputsFromTasks(tasks []models.Task, from, to, now time.Time, xpFor func(complexity string) int) ProductivityInputs {
	in := ProductivityInputs{Days: int(math.Round(to.Sub(from).Hours() / 24))}
	within := func(t *time.Time) bool {
		return t != nil && !t.Before(from) && t.Before(to)
	}

	for _, t := range tasks {
		if t.Status == models.TaskStatusCancelled {
			continue
		}
		// work finished before the period belongs to an earlier one
		if t.CompletedAt != nil && t.CompletedAt.Before(from) {
			continue
		}
		created := t.CreatedAt
		if !within(&created) && !within(t.DueDate) && !within(t.CompletedAt) {
			continue
		}
		in.Total++
		if t.IsCompleted() && within(t.CompletedAt) {
			in.Completed++
			if t.CompletedOnTime() {
				in.OnTime++
			}
			xp := t.XPReward
			if xp <= 0 && xpFor != nil {
				xp = xpFor(t.Complexity)
			}
			in.XP += float64(xp)
			continue
		}
		if !t.IsCompleted() && t.DueDate != nil && t.DueDate.Before(now) {
			in.Overdue++
		}
	}
	return in
}

// ProductivityScore blends completion rate (50), on-time rate (30) and XP
// velocity against targetXPPerDay (20) into a 0-100 score.
func ProductivityScore(in ProductivityInputs, targetXPPerDay float64) float64 {
	if targetXPPerDay <= 0 {
		targetXPPerDay = DefaultTargetXPPerDay
	}
	velocity := math.Min(1, in.XPPerDay()/targetXPPerDay)
	score := 50*in.CompletionRate() + 30*in.OnTimeRate() + 20*velocity
	return math.Round(score*10) / 10
}
