package models

import (
	"time"
)

// IntegrationToken stores OAuth credentials for one provider
type IntegrationToken struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Provider     string    `json:"provider" db:"provider"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	Scope        string    `json:"scope" db:"scope"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// SyncMapping links a locally created task to an external system's record
type SyncMapping struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Provider   string    `json:"provider" db:"provider"`
	ExternalID string    `json:"external_id" db:"external_id"`
	TaskID     string    `json:"task_id" db:"task_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
