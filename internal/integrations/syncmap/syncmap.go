// Package syncmap turns items pulled from an integration into tasks, once per item.
package syncmap

import (
	"context"
	"strings"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/heuristics"
	"taskquest/internal/errors"
	"taskquest/models"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
)

const (
	mappingsTable = "sync_mappings"
	tasksTable    = "tasks"
)

var mappingKey = []string{"user_id", "provider", "external_id"}

// RuleSource supplies the keyword tables used to infer priority and complexity
type RuleSource interface {
	Get() *rules.RuleSet
}

// Result summarizes one sync run
type Result struct {
	Created []string `json:"created"` // task IDs
	Skipped int      `json:"skipped"`
}

// Syncer creates tasks for external items that have no mapping yet
type Syncer struct {
	backend ports.Backend
	rules   RuleSource
	now     func() time.Time
	newID   func() string
}

// NewSyncer creates a syncer writing through backend
func NewSyncer(backend ports.Backend, src RuleSource) *Syncer {
	return &Syncer{
		backend: backend,
		rules:   src,
		now:     time.Now,
		newID:   func() string { return core.NewID().String() },
	}
}

// Mapped returns the external IDs already linked to a task for this user and provider
func (s *Syncer) Mapped(ctx context.Context, user core.UserID, provider string) (map[string]string, error) {
	rows, err := s.backend.Query(ctx, ports.QuerySpec{
		Table:   mappingsTable,
		Columns: []string{"external_id", "task_id"},
		Filters: []ports.Filter{ports.Eq("user_id", user.String()), ports.Eq("provider", provider)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sync mappings")
	}
	mapped := make(map[string]string, len(rows))
	for _, r := range rows {
		ext, _ := r["external_id"].(string)
		task, _ := r["task_id"].(string)
		if ext != "" {
			mapped[ext] = task
		}
	}
	return mapped, nil
}

// Sync creates one task per unmapped item and records the mapping. Items already
// mapped, repeated within the batch, or without an external ID are skipped, so
// running Sync again with the same items creates nothing.
func (s *Syncer) Sync(ctx context.Context, user core.UserID, provider string, items []ports.ExternalItem) (Result, error) {
	if user == "" {
		return Result{}, errors.Unauthenticated()
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return Result{}, errors.InvalidInput("provider is required")
	}

	mapped, err := s.Mapped(ctx, user, provider)
	if err != nil {
		return Result{}, err
	}

	set := s.rules.Get()
	result := Result{Created: []string{}}
	for _, item := range items {
		if item.ExternalID == "" {
			result.Skipped++
			continue
		}
		if _, ok := mapped[item.ExternalID]; ok {
			result.Skipped++
			continue
		}

		now := s.now().UTC()
		task := s.taskFor(set, user, item, now)
		if _, err := s.backend.Upsert(ctx, tasksTable, []ports.Row{taskRow(task)}, []string{"id"}); err != nil {
			return result, errors.Wrapf(err, "failed to create task for %s item %s", provider, item.ExternalID)
		}

		mapping := models.SyncMapping{
			ID:         s.newID(),
			UserID:     user.String(),
			Provider:   provider,
			ExternalID: item.ExternalID,
			TaskID:     task.ID,
			CreatedAt:  now,
		}
		if _, err := s.backend.Upsert(ctx, mappingsTable, []ports.Row{mappingRow(mapping)}, mappingKey); err != nil {
			return result, errors.Wrapf(err, "failed to record mapping for %s item %s", provider, item.ExternalID)
		}

		mapped[item.ExternalID] = task.ID
		result.Created = append(result.Created, task.ID)
	}

	log.WithFields(log.Fields{
		"user_id":  user,
		"provider": provider,
		"created":  len(result.Created),
		"skipped":  result.Skipped,
	}).Info("Integration sync finished")
	return result, nil
}

func (s *Syncer) taskFor(set *rules.RuleSet, user core.UserID, item ports.ExternalItem, now time.Time) models.Task {
	complexity := heuristics.InferComplexity(set, item.Title, item.Description)
	return models.Task{
		ID:          s.newID(),
		UserID:      user.String(),
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
		Status:      models.TaskStatusTodo,
		Priority:    heuristics.InferPriority(set, item.Title, item.Description),
		Complexity:  complexity,
		XPReward:    heuristics.XPFor(set, complexity),
		DueDate:     item.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func taskRow(t models.Task) ports.Row {
	row := ports.Row{
		"id":          t.ID,
		"user_id":     t.UserID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    t.Priority,
		"complexity":  t.Complexity,
		"xp_reward":   t.XPReward,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
	if t.DueDate != nil {
		row["due_date"] = *t.DueDate
	}
	return row
}

func mappingRow(m models.SyncMapping) ports.Row {
	return ports.Row{
		"id":          m.ID,
		"user_id":     m.UserID,
		"provider":    m.Provider,
		"external_id": m.ExternalID,
		"task_id":     m.TaskID,
		"created_at":  m.CreatedAt,
	}
}
