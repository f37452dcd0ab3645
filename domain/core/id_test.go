package core

import (
	"testing"
	"time"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseUserID tests that a missing session subject is reported as unauthenticated
func TestParseUserID(t *testing.T) {
	tests := []struct {
		input    string
		expected UserID
		hasError bool
	}{
		{"user-1", UserID("user-1"), false},
		{"  user-2 ", UserID("user-2"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseUserID(test.input)
		if test.hasError {
			if !IsUnauthenticated(err) {
				t.Errorf("Expected unauthenticated error for input '%s', got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestParseGoalID tests goal ID parsing
func TestParseGoalID(t *testing.T) {
	if _, err := ParseGoalID(""); err == nil {
		t.Error("Expected error for empty goal ID")
	}
	id, err := ParseGoalID("goal-9")
	if err != nil || id != GoalID("goal-9") {
		t.Errorf("Expected goal-9, got %s (%v)", id, err)
	}
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	r := LastNDays(now, 7)

	if want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC); !r.From.Equal(want) {
		t.Errorf("Expected from %s, got %s", want, r.From)
	}
	if want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC); !r.To.Equal(want) {
		t.Errorf("Expected to %s, got %s", want, r.To)
	}
	if !r.Contains(now) {
		t.Error("Expected range to contain now")
	}
	if r.Contains(r.To) {
		t.Error("Range must be half-open")
	}

	prev := r.Previous()
	if !prev.To.Equal(r.From) || prev.To.Sub(prev.From) != r.To.Sub(r.From) {
		t.Errorf("Unexpected previous range %s", prev)
	}
}

func TestDateRangeValidate(t *testing.T) {
	now := time.Now()
	if err := (DateRange{From: now, To: now}).Validate(); err == nil {
		t.Error("Expected error for empty range")
	}
	if err := (DateRange{}).Validate(); err == nil {
		t.Error("Expected error for zero range")
	}
	if err := (DateRange{From: now, To: now.Add(time.Hour)}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
