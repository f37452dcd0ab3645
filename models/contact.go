package models

import (
	"time"
)

// Contact represents a person in the user's network
type Contact struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Name            string     `json:"name" db:"name"`
	Company         string     `json:"company,omitempty" db:"company"`
	Category        string     `json:"category,omitempty" db:"category"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty" db:"last_contacted_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Interaction is a single touchpoint with a contact
type Interaction struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ContactID  string    `json:"contact_id" db:"contact_id"`
	Kind       string    `json:"kind" db:"kind"`
	Sentiment  float64   `json:"sentiment" db:"sentiment"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
