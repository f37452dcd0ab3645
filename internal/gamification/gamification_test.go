package gamification

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"taskquest/domain/rules"
	"taskquest/models"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{2500, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.xp), "xp=%d", tt.xp)
	}
}

func TestProperty_LevelBoundaries(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("xp lies within its level's band", prop.ForAll(
		func(xp int) bool {
			l := Level(xp)
			return XPForLevel(l) <= xp && xp < XPForLevel(l+1)
		},
		gen.IntRange(0, 1_000_000),
	))
	properties.TestingRun(t)
}

func TestXPForTask(t *testing.T) {
	set := rules.Default()
	assert.Equal(t, 25, XPForTask(set, models.Task{Complexity: "simple"}))
	assert.Equal(t, 100, XPForTask(set, models.Task{Complexity: "complex"}))
	assert.Equal(t, 50, XPForTask(set, models.Task{}))
	assert.Equal(t, 70, XPForTask(set, models.Task{Complexity: "simple", XPReward: 70}))
}

func TestStreaks(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	at := func(daysAgo int) time.Time { return now.AddDate(0, 0, -daysAgo).Add(-time.Hour) }

	tests := []struct {
		name        string
		completions []time.Time
		want        Streak
	}{
		{"none", nil, Streak{}},
		{"today only", []time.Time{at(0)}, Streak{Current: 1, Longest: 1}},
		{"ending yesterday", []time.Time{at(1), at(2), at(2)}, Streak{Current: 2, Longest: 2}},
		{"broken", []time.Time{at(0), at(2), at(3), at(4)}, Streak{Current: 1, Longest: 3}},
		{"stale", []time.Time{at(5), at(6)}, Streak{Current: 0, Longest: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streaks(tt.completions, now, time.UTC))
		})
	}
}

func TestBuildProfile(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tasks := []models.Task{
		{Status: models.TaskStatusCompleted, Complexity: "complex", CompletedAt: &now},
		{Status: models.TaskStatusCompleted, Complexity: "medium", CompletedAt: &yesterday},
		{Status: models.TaskStatusTodo, Complexity: "complex"},
	}
	p := BuildProfile(rules.Default(), tasks, now, nil)
	assert.Equal(t, 150, p.TotalXP)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 400, p.NextLevelXP)
	assert.InDelta(t, 50.0/300.0, p.LevelProgress, 1e-9)
	assert.Equal(t, 2, p.CompletedTasks)
	assert.Equal(t, Streak{Current: 2, Longest: 2}, p.Streak)
}
