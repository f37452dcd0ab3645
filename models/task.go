package models

import (
	"time"
)

// TaskStatus values stored in the tasks table
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task represents a user task row
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	ProjectID   string     `json:"project_id,omitempty" db:"project_id"`
	GoalID      string     `json:"goal_id,omitempty" db:"goal_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Priority    string     `json:"priority,omitempty" db:"priority"`
	Complexity  string     `json:"complexity,omitempty" db:"complexity"`
	XPReward    int        `json:"xp_reward" db:"xp_reward"`
	Minutes     int        `json:"estimated_minutes" db:"estimated_minutes"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the task has been finished
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted && t.CompletedAt != nil && !t.CompletedAt.IsZero()
}

// CompletedOnTime reports whether a completed task was finished by its due date.
// Tasks without a due date count as on time.
func (t Task) CompletedOnTime() bool {
	if !t.IsCompleted() {
		return false
	}
	if t.DueDate == nil || t.DueDate.IsZero() {
		return true
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// Project groups tasks
type Project struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
