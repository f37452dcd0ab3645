package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"taskquest/domain/core"
	"taskquest/models"
)

// ActivityGeneratorConfig configures the synthetic activity generator
type ActivityGeneratorConfig struct {
	UserID          core.UserID `json:"user_id"`
	Days            int         `json:"days"`
	End             time.Time   `json:"end"`
	TasksPerDay     float64     `json:"tasks_per_day"`
	CompletionRate  float64     `json:"completion_rate"`
	Goals           int         `json:"goals"`
	Contacts        int         `json:"contacts"`
	CheckInRate     float64     `json:"check_in_rate"`
	StressBaseline  float64     `json:"stress_baseline"`
	EnergyBaseline  float64     `json:"energy_baseline"`
	InteractionRate float64     `json:"interaction_rate"`
	Seed            int64       `json:"seed"`
}

// DefaultActivityConfig returns a month of moderately busy activity
func DefaultActivityConfig() ActivityGeneratorConfig {
	return ActivityGeneratorConfig{
		UserID:          "user_0001",
		Days:            28,
		End:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TasksPerDay:     3,
		CompletionRate:  0.7,
		Goals:           3,
		Contacts:        6,
		CheckInRate:     0.8,
		StressBaseline:  5,
		EnergyBaseline:  6,
		InteractionRate: 0.25,
		Seed:            42,
	}
}

// Activity is everything generated for one user
type Activity struct {
	Tasks        []models.Task
	Goals        []models.Goal
	GoalProgress []models.GoalProgressEntry
	Contacts     []models.Contact
	Interactions []models.Interaction
	Wellness     []models.WellnessEntry
}

// Load inserts every generated row into b under the table names the fetcher reads
func (a *Activity) Load(b *InMemoryBackend) {
	b.Insert("tasks", ToRows(a.Tasks)...)
	b.Insert("goals", ToRows(a.Goals)...)
	b.Insert("goal_progress", ToRows(a.GoalProgress)...)
	b.Insert("contacts", ToRows(a.Contacts)...)
	b.Insert("contact_interactions", ToRows(a.Interactions)...)
	b.Insert("wellness_entries", ToRows(a.Wellness)...)
}

// ActivityGenerator produces deterministic task, goal, contact and wellness rows
type ActivityGenerator struct {
	config ActivityGeneratorConfig
	rng    *rand.Rand
}

// NewActivityGenerator creates a generator; the same config always yields the same rows
func NewActivityGenerator(config ActivityGeneratorConfig) *ActivityGenerator {
	return &ActivityGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	taskTitles = []string{
		"Reply to email from finance", "Refactor billing module", "Call the dentist", "Research vector databases",
		"Book flights", "Design onboarding flow", "Send invoice", "Implement export endpoint", "Check analytics",
		"Migrate cron jobs",
	}
	goalTitles      = []string{"Run 100km", "Read 12 books", "Ship side project", "Save 5000", "Learn Go generics"}
	contactNames    = []string{"Ana", "Bo", "Cy", "Dee", "Eli", "Fay", "Gus", "Hal"}
	interactionKind = []string{"call", "email", "meeting", "message"}
)

// Generate builds the activity for the configured window
func (g *ActivityGenerator) Generate() *Activity {
	a := &Activity{}
	start := g.config.End.AddDate(0, 0, -g.config.Days)
	user := g.config.UserID.String()

	for d := 0; d < g.config.Days; d++ {
		day := start.AddDate(0, 0, d)
		n := int(math.Round(g.config.TasksPerDay + g.rng.NormFloat64()))
		for i := 0; i < max(n, 0); i++ {
			a.Tasks = append(a.Tasks, g.task(user, day, len(a.Tasks)))
		}
		if g.rng.Float64() < g.config.CheckInRate {
			a.Wellness = append(a.Wellness, g.checkIn(user, day, len(a.Wellness)))
		}
	}

	for i := 0; i < g.config.Goals; i++ {
		goal, progress := g.goal(user, start, i)
		a.Goals = append(a.Goals, goal)
		a.GoalProgress = append(a.GoalProgress, progress...)
	}

	for i := 0; i < g.config.Contacts; i++ {
		contact, interactions := g.contact(user, start, i)
		a.Contacts = append(a.Contacts, contact)
		a.Interactions = append(a.Interactions, interactions...)
	}
	return a
}

func (g *ActivityGenerator) task(user string, day time.Time, n int) models.Task {
	created := day.Add(time.Duration(8+g.rng.Intn(10)) * time.Hour)
	due := created.Add(time.Duration(1+g.rng.Intn(72)) * time.Hour)
	complexity := []string{"simple", "medium", "complex"}[g.rng.Intn(3)]
	xp := map[string]int{"simple": 25, "medium": 50, "complex": 100}[complexity]

	t := models.Task{
		ID:         fmt.Sprintf("task_%04d", n+1),
		UserID:     user,
		Title:      taskTitles[g.rng.Intn(len(taskTitles))],
		Status:     models.TaskStatusTodo,
		Priority:   []string{"low", "medium", "high", "urgent"}[g.rng.Intn(4)],
		Complexity: complexity,
		XPReward:   xp,
		DueDate:    &due,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if g.rng.Float64() < g.config.CompletionRate {
		done := created.Add(time.Duration(30+g.rng.Intn(60*36)) * time.Minute)
		if done.Before(g.config.End) {
			t.Status = models.TaskStatusCompleted
			t.CompletedAt = &done
			t.UpdatedAt = done
		}
	}
	return t
}

func (g *ActivityGenerator) checkIn(user string, day time.Time, n int) models.WellnessEntry {
	score := func(base float64) float64 {
		return math.Round(clamp(base+g.rng.NormFloat64()*1.5, 0, 10)*10) / 10
	}
	return models.WellnessEntry{
		ID:              fmt.Sprintf("wellness_%04d", n+1),
		UserID:          user,
		Stress:          score(g.config.StressBaseline),
		Energy:          score(g.config.EnergyBaseline),
		WorkLifeBalance: score(6),
		Satisfaction:    score(6.5),
		Sleep:           score(7),
		Social:          score(5.5),
		Workload:        score(g.config.StressBaseline),
		RecordedAt:      day.Add(21 * time.Hour),
	}
}

func (g *ActivityGenerator) goal(user string, start time.Time, n int) (models.Goal, []models.GoalProgressEntry) {
	target := float64(10 * (1 + g.rng.Intn(10)))
	targetDate := start.AddDate(0, 0, g.config.Days+14+g.rng.Intn(60))
	goal := models.Goal{
		ID:          fmt.Sprintf("goal_%02d", n+1),
		UserID:      user,
		Title:       goalTitles[n%len(goalTitles)],
		Category:    []string{"health", "learning", "career", "finance"}[g.rng.Intn(4)],
		TargetValue: target,
		Status:      "active",
		StartDate:   start,
		TargetDate:  &targetDate,
		CreatedAt:   start,
	}

	var progress []models.GoalProgressEntry
	value := 0.0
	for d := 0; d < g.config.Days; d += 1 + g.rng.Intn(4) {
		value = math.Min(target, value+target*(0.01+g.rng.Float64()*0.05))
		progress = append(progress, models.GoalProgressEntry{
			ID:         fmt.Sprintf("progress_%02d_%03d", n+1, len(progress)+1),
			GoalID:     goal.ID,
			UserID:     user,
			Value:      math.Round(value*100) / 100,
			RecordedAt: start.AddDate(0, 0, d).Add(19 * time.Hour),
		})
	}
	goal.CurrentValue = value
	return goal, progress
}

func (g *ActivityGenerator) contact(user string, start time.Time, n int) (models.Contact, []models.Interaction) {
	contact := models.Contact{
		ID:        fmt.Sprintf("contact_%02d", n+1),
		UserID:    user,
		Name:      contactNames[n%len(contactNames)],
		Category:  []string{"work", "friend", "family", "mentor"}[g.rng.Intn(4)],
		CreatedAt: start.AddDate(0, -6, 0),
	}

	// later contacts are contacted less, so the generated network has every strength
	rate := g.config.InteractionRate / float64(1+n)
	var interactions []models.Interaction
	for d := 0; d < g.config.Days; d++ {
		if g.rng.Float64() >= rate {
			continue
		}
		at := start.AddDate(0, 0, d).Add(time.Duration(9+g.rng.Intn(9)) * time.Hour)
		interactions = append(interactions, models.Interaction{
			ID:         fmt.Sprintf("interaction_%02d_%03d", n+1, len(interactions)+1),
			UserID:     user,
			ContactID:  contact.ID,
			Kind:       interactionKind[g.rng.Intn(len(interactionKind))],
			Sentiment:  math.Round((g.rng.Float64()*2-1)*100) / 100,
			OccurredAt: at,
		})
		last := at
		contact.LastContactedAt = &last
	}
	return contact, interactions
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
