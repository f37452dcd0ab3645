package models

import (
	"time"
)

// Goal represents a measurable user goal
type Goal struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Category     string     `json:"category,omitempty" db:"category"`
	TargetValue  float64    `json:"target_value" db:"target_value"`
	CurrentValue float64    `json:"current_value" db:"current_value"`
	Status       string     `json:"status" db:"status"`
	StartDate    time.Time  `json:"start_date" db:"start_date"`
	TargetDate   *time.Time `json:"target_date,omitempty" db:"target_date"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Progress returns completion percentage in [0, 100]
func (g Goal) Progress() float64 {
	if g.TargetValue <= 0 {
		return 0
	}
	p := g.CurrentValue / g.TargetValue * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// IsAchieved reports whether the goal has reached its target or was marked completed
func (g Goal) IsAchieved() bool {
	return g.Status == "completed" || (g.TargetValue > 0 && g.CurrentValue >= g.TargetValue)
}

// GoalProgressEntry is one recorded progress update for a goal
type GoalProgressEntry struct {
	ID         string    `json:"id" db:"id"`
	GoalID     string    `json:"goal_id" db:"goal_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Value      float64   `json:"value" db:"value"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}
