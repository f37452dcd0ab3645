package app

import (
	"context"
	"encoding/json"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/analysis/heuristics"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Where a delegated result came from
const (
	SourceBackend = "backend"
	SourceLocal   = "local"
)

const (
	procSuggestTasks     = "generate_ai_task_suggestions"
	defaultSuggestionCap = 5
)

// Suggestions is the answer to a suggestion request
type Suggestions struct {
	Items  []heuristics.TaskSuggestion `json:"suggestions"`
	Source string                      `json:"source"`
}

// SuggestionService proposes follow-up tasks. The backend's suggestion procedure
// is preferred; without one the keyword heuristics answer.
type SuggestionService struct {
	backend    ports.Backend
	fetcher    *fetch.Fetcher
	engine     *insight.Engine
	windowDays int
	now        func() time.Time
}

// NewSuggestionService creates a suggestion service
func NewSuggestionService(backend ports.Backend, fetcher *fetch.Fetcher, engine *insight.Engine, windowDays int) *SuggestionService {
	if windowDays < 1 {
		windowDays = 30
	}
	return &SuggestionService{
		backend:    backend,
		fetcher:    fetcher,
		engine:     engine,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Suggest returns up to limit suggestions for user
func (s *SuggestionService) Suggest(ctx context.Context, user core.UserID, limit int) (*Suggestions, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	if limit <= 0 {
		limit = defaultSuggestionCap
	}

	raw, err := s.backend.RPC(ctx, procSuggestTasks, map[string]any{
		"p_user_id": user.String(),
		"p_limit":   limit,
	})
	switch {
	case err == nil:
		items, perr := s.parseSuggestions(raw, limit)
		if perr != nil {
			return nil, perr
		}
		return &Suggestions{Items: items, Source: SourceBackend}, nil
	case core.IsProcedureUnavailable(err):
		log.WithField("procedure", procSuggestTasks).Debug("Falling back to local suggestions")
		items, lerr := s.Local(ctx, user, limit)
		if lerr != nil {
			return nil, lerr
		}
		return &Suggestions{Items: items, Source: SourceLocal}, nil
	default:
		return nil, errors.Wrap(err, "failed to generate suggestions")
	}
}

// Local derives suggestions from the user's tasks, goals and dormant contacts
func (s *SuggestionService) Local(ctx context.Context, user core.UserID, limit int) ([]heuristics.TaskSuggestion, error) {
	r := core.LastNDays(s.now().In(s.engine.Location()), s.windowDays)
	data, err := loadAll(ctx, s.fetcher, user, r,
		fetch.SourceTasks, fetch.SourceGoals, fetch.SourceContacts, fetch.SourceInteractions)
	if err != nil {
		return nil, err
	}
	data.Now = s.now()

	dormant, err := s.engine.DormantContacts(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to classify contacts")
	}
	return heuristics.SuggestTasks(s.engine.Rules(), heuristics.SuggestionInput{
		Goals:           data.Goals,
		Tasks:           data.Tasks,
		DormantContacts: dormant,
		Now:             data.Now,
		Limit:           limit,
	}), nil
}

// parseSuggestions accepts either a bare array or {"suggestions": [...]}
func (s *SuggestionService) parseSuggestions(raw json.RawMessage, limit int) ([]heuristics.TaskSuggestion, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.ExternalServiceError("suggestions", errors.New(errors.CodeInvalidInput, "invalid JSON from "+procSuggestTasks))
	}
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		list = list.Get("suggestions")
	}

	set := s.engine.Rules()
	out := []heuristics.TaskSuggestion{}
	list.ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		if title == "" {
			return true
		}
		reason := item.Get("reason").String()
		if reason == "" {
			reason = item.Get("description").String()
		}
		ts := heuristics.TaskSuggestion{
			Title:      title,
			Reason:     reason,
			Priority:   item.Get("priority").String(),
			Complexity: item.Get("complexity").String(),
			GoalID:     item.Get("goal_id").String(),
			ContactID:  item.Get("contact_id").String(),
		}
		if ts.Priority == "" {
			ts.Priority = heuristics.InferPriority(set, title, reason)
		}
		if ts.Complexity == "" {
			ts.Complexity = heuristics.InferComplexity(set, title, reason)
		}
		ts.XPReward = int(item.Get("xp_reward").Int())
		if ts.XPReward <= 0 {
			ts.XPReward = heuristics.XPFor(set, ts.Complexity)
		}
		out = append(out, ts)
		return len(out) < limit
	})
	return out, nil
}
