package models

import (
	"time"
)

// WellnessEntry is a self-reported check-in; every dimension is on a 0-10 scale
type WellnessEntry struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Stress          float64   `json:"stress" db:"stress"`
	Energy          float64   `json:"energy" db:"energy"`
	WorkLifeBalance float64   `json:"work_life_balance" db:"work_life_balance"`
	Satisfaction    float64   `json:"satisfaction" db:"satisfaction"`
	Sleep           float64   `json:"sleep" db:"sleep"`
	Social          float64   `json:"social" db:"social"`
	Workload        float64   `json:"workload" db:"workload"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
}
