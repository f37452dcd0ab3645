package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 needs a working clock and entropy source; v4 only needs entropy
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	UserID    ID
	TaskID    ID
	GoalID    ID
	ProjectID ID
	ContactID ID
	InsightID ID
)

func (id UserID) String() string    { return ID(id).String() }
func (id TaskID) String() string    { return ID(id).String() }
func (id GoalID) String() string    { return ID(id).String() }
func (id ProjectID) String() string { return ID(id).String() }
func (id ContactID) String() string { return ID(id).String() }
func (id InsightID) String() string { return ID(id).String() }

// ParseUserID parses a session subject into a UserID.
// An empty subject means there is no authenticated user.
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrUnauthenticated
	}
	return UserID(strings.TrimSpace(s)), nil
}

// ParseGoalID parses a string into GoalID
func ParseGoalID(s string) (GoalID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("goal ID cannot be empty")
	}
	return GoalID(s), nil
}

// ParseTaskID parses a string into TaskID
func ParseTaskID(s string) (TaskID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("task ID cannot be empty")
	}
	return TaskID(s), nil
}
