package heuristics

import (
	"fmt"
	"sort"
	"time"

	"taskquest/domain/rules"
	"taskquest/models"
)

// TaskSuggestion is a proposed next task
type TaskSuggestion struct {
	Title      string `json:"title"`
	Reason     string `json:"reason"`
	Priority   string `json:"priority"`
	Complexity string `json:"complexity"`
	XPReward   int    `json:"xp_reward"`
	GoalID     string `json:"goal_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
}

// SuggestionInput is the user state suggestions are derived from
type SuggestionInput struct {
	Goals           []models.Goal
	Tasks           []models.Task
	DormantContacts []models.Contact
	Now             time.Time
	Limit           int
}

// SuggestTasks proposes follow-up tasks: overdue work first, then goals that
// have no open task, then dormant contacts. Results are deterministic for a
// given input.
func SuggestTasks(set *rules.RuleSet, in SuggestionInput) []TaskSuggestion {
	limit := in.Limit
	if limit <= 0 {
		limit = 5
	}
	var out []TaskSuggestion
	add := func(s TaskSuggestion) bool {
		if s.Complexity == "" {
			s.Complexity = InferComplexity(set, s.Title, "")
		}
		if s.Priority == "" {
			s.Priority = InferPriority(set, s.Title, "")
		}
		s.XPReward = XPFor(set, s.Complexity)
		out = append(out, s)
		return len(out) >= limit
	}

	openByGoal := make(map[string]bool)
	var overdue []models.Task
	for _, t := range in.Tasks {
		if t.IsCompleted() || t.Status == models.TaskStatusCancelled {
			continue
		}
		if t.GoalID != "" {
			openByGoal[t.GoalID] = true
		}
		if t.DueDate != nil && t.DueDate.Before(in.Now) {
			overdue = append(overdue, t)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool { return overdue[i].DueDate.Before(*overdue[j].DueDate) })

	for _, t := range overdue {
		if add(TaskSuggestion{
			Title:      fmt.Sprintf("Reschedule or finish %q", t.Title),
			Reason:     fmt.Sprintf("overdue since %s", t.DueDate.Format("2006-01-02")),
			Priority:   "high",
			Complexity: "simple",
			GoalID:     t.GoalID,
		}) {
			return out
		}
	}

	goals := make([]models.Goal, 0, len(in.Goals))
	for _, g := range in.Goals {
		if !g.IsAchieved() && !openByGoal[g.ID] {
			goals = append(goals, g)
		}
	}
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].Progress() < goals[j].Progress() })
	for _, g := range goals {
		if add(TaskSuggestion{
			Title:  fmt.Sprintf("Plan the next step for %s", g.Title),
			Reason: fmt.Sprintf("goal is %.0f%% complete with no open tasks", g.Progress()),
			GoalID: g.ID,
		}) {
			return out
		}
	}

	for _, c := range in.DormantContacts {
		if add(TaskSuggestion{
			Title:      fmt.Sprintf("Send a quick email to %s", c.Name),
			Reason:     "no recent contact",
			Priority:   "medium",
			Complexity: "simple",
			ContactID:  c.ID,
		}) {
			return out
		}
	}
	return out
}
