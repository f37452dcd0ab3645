// Package gamification computes XP, levels and completion streaks.
package gamification

import (
	"math"
	"sort"
	"time"

	"taskquest/domain/rules"
	"taskquest/models"
)

// XPForTask returns the task's stored reward, or the configured XP for its complexity
func XPForTask(set *rules.RuleSet, t models.Task) int {
	if t.XPReward > 0 {
		return t.XPReward
	}
	if xp, ok := set.XPByComplexity[t.Complexity]; ok {
		return xp
	}
	return set.XPByComplexity["medium"]
}

// Level is floor(sqrt(xp/100)) + 1
func Level(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/100))) + 1
}

// XPForLevel is the total XP at which level starts
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * 100
}

// Streak counts consecutive days with at least one completion. Current ends
// today, or yesterday when nothing has been completed yet today.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Streaks derives current and longest streaks from completion times, using
// calendar days in loc.
func Streaks(completions []time.Time, now time.Time, loc *time.Location) Streak {
	if loc == nil {
		loc = time.UTC
	}
	day := func(t time.Time) time.Time {
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}

	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, c := range completions {
		if c.IsZero() {
			continue
		}
		d := day(c)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return Streak{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var s Streak
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			s.Longest = max(s.Longest, run)
			run = 1
		}
	}
	s.Longest = max(s.Longest, run)

	today := day(now)
	cursor := today
	if !seen[cursor] {
		cursor = today.AddDate(0, 0, -1)
	}
	for seen[cursor] {
		s.Current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return s
}

// Profile is a user's gamification summary
type Profile struct {
	TotalXP        int     `json:"total_xp"`
	Level          int     `json:"level"`
	NextLevelXP    int     `json:"next_level_xp"`
	LevelProgress  float64 `json:"level_progress"`
	CompletedTasks int     `json:"completed_tasks"`
	Streak         Streak  `json:"streak"`
}

// BuildProfile totals XP over completed tasks and derives level and streaks
func BuildProfile(set *rules.RuleSet, tasks []models.Task, now time.Time, loc *time.Location) Profile {
	var p Profile
	var completions []time.Time
	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		p.CompletedTasks++
		p.TotalXP += XPForTask(set, t)
		completions = append(completions, *t.CompletedAt)
	}

	p.Level = Level(p.TotalXP)
	p.NextLevelXP = XPForLevel(p.Level + 1)
	floor := XPForLevel(p.Level)
	p.LevelProgress = float64(p.TotalXP-floor) / float64(p.NextLevelXP-floor)
	p.Streak = Streaks(completions, now, loc)
	return p
}
