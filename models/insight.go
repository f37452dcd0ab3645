package models

import (
	"time"
)

// StoredInsight is the persisted form of a generated insight
type StoredInsight struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Section         string    `json:"section" db:"section"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Category        string    `json:"category" db:"category"`
	Confidence      float64   `json:"confidence" db:"confidence"`
	Recommendations string    `json:"recommendations" db:"recommendations"` // JSON array
	GeneratedAt     time.Time `json:"generated_at" db:"generated_at"`
}
