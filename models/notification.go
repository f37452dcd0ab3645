package models

import (
	"time"
)

// NotificationPreferences controls which insights are pushed to a user
type NotificationPreferences struct {
	UserID          string     `json:"user_id" db:"user_id"`
	EmailEnabled    bool       `json:"email_enabled" db:"email_enabled"`
	PushEnabled     bool       `json:"push_enabled" db:"push_enabled"`
	SlackEnabled    bool       `json:"slack_enabled" db:"slack_enabled"`
	MinPriority     string     `json:"min_priority" db:"min_priority"`
	QuietHoursStart int        `json:"quiet_hours_start" db:"quiet_hours_start"` // hour 0-23, -1 disables
	QuietHoursEnd   int        `json:"quiet_hours_end" db:"quiet_hours_end"`
	DigestFrequency string     `json:"digest_frequency" db:"digest_frequency"` // daily, weekly, never
	Timezone        string     `json:"timezone" db:"timezone"`
	LastDigestAt    *time.Time `json:"last_digest_at,omitempty" db:"last_digest_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
