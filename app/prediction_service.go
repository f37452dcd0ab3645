package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/analysis/heuristics"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/models"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	procPredictGoal        = "predict_goal_completion"
	procProductivity       = "calculate_productivity_score"
	predictionLookbackDays = 365
)

// Prediction is a goal completion estimate and where it came from
type Prediction struct {
	heuristics.GoalPrediction
	Source string `json:"source"`
}

// Productivity is a 0-100 productivity score for a range
type Productivity struct {
	Score  float64                        `json:"score"`
	Inputs *heuristics.ProductivityInputs `json:"inputs,omitempty"`
	Source string                         `json:"source"`
}

// PredictionService answers goal and productivity predictions, delegating to
// the backend's procedures when it has them
type PredictionService struct {
	backend ports.Backend
	fetcher *fetch.Fetcher
	engine  *insight.Engine
	now     func() time.Time
}

// NewPredictionService creates a prediction service
func NewPredictionService(backend ports.Backend, fetcher *fetch.Fetcher, engine *insight.Engine) *PredictionService {
	return &PredictionService{
		backend: backend,
		fetcher: fetcher,
		engine:  engine,
		now:     time.Now,
	}
}

// PredictGoal estimates when goal reaches its target
func (s *PredictionService) PredictGoal(ctx context.Context, user core.UserID, goal core.GoalID) (*Prediction, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	raw, err := s.backend.RPC(ctx, procPredictGoal, map[string]any{
		"p_user_id": user.String(),
		"p_goal_id": goal.String(),
	})
	switch {
	case err == nil:
		pred, perr := parsePrediction(raw)
		if perr != nil {
			return nil, perr
		}
		pred.GoalID = goal.String()
		return &Prediction{GoalPrediction: pred, Source: SourceBackend}, nil
	case core.IsProcedureUnavailable(err):
		log.WithField("procedure", procPredictGoal).Debug("Falling back to local goal prediction")
		pred, lerr := s.LocalGoalPrediction(ctx, user, goal)
		if lerr != nil {
			return nil, lerr
		}
		return &Prediction{GoalPrediction: *pred, Source: SourceLocal}, nil
	default:
		return nil, errors.Wrap(err, "failed to predict goal completion")
	}
}

// LocalGoalPrediction fits the goal's recorded progress. Goals with too little
// history get a prediction with zero confidence rather than an error.
func (s *PredictionService) LocalGoalPrediction(ctx context.Context, user core.UserID, goal core.GoalID) (*heuristics.GoalPrediction, error) {
	now := s.now()
	r := core.LastNDays(now.In(s.engine.Location()), predictionLookbackDays)
	data, err := loadAll(ctx, s.fetcher, user, r, fetch.SourceGoals, fetch.SourceGoalProgress)
	if err != nil {
		return nil, err
	}

	for _, g := range data.Goals {
		if g.ID != goal.String() {
			continue
		}
		var entries []models.GoalProgressEntry
		for _, e := range data.GoalProgress {
			if e.GoalID == g.ID {
				entries = append(entries, e)
			}
		}
		pred, err := heuristics.PredictGoal(g, entries, now)
		if err != nil && !stderrors.Is(err, core.ErrInsufficientData) {
			return nil, errors.Wrap(err, "failed to predict goal completion")
		}
		return &pred, nil
	}
	return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w %s", core.ErrGoalNotFound, goal))
}

// ProductivityScore scores r for user
func (s *PredictionService) ProductivityScore(ctx context.Context, user core.UserID, r core.DateRange) (*Productivity, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	if err := r.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}

	raw, err := s.backend.RPC(ctx, procProductivity, map[string]any{
		"p_user_id":    user.String(),
		"p_start_date": r.From,
		"p_end_date":   r.To,
	})
	switch {
	case err == nil:
		score, perr := parseScore(raw)
		if perr != nil {
			return nil, perr
		}
		return &Productivity{Score: score, Source: SourceBackend}, nil
	case core.IsProcedureUnavailable(err):
		log.WithField("procedure", procProductivity).Debug("Falling back to local productivity score")
		return s.LocalProductivity(ctx, user, r)
	default:
		return nil, errors.Wrap(err, "failed to calculate productivity score")
	}
}

// LocalProductivity computes the score from the user's tasks
func (s *PredictionService) LocalProductivity(ctx context.Context, user core.UserID, r core.DateRange) (*Productivity, error) {
	data, err := loadAll(ctx, s.fetcher, user, r, fetch.SourceTasks)
	if err != nil {
		return nil, err
	}
	set := s.engine.Rules()
	inputs := heuristics.ProductivityInputsFromTasks(data.Tasks, r.From, r.To, s.now(), func(c string) int {
		return heuristics.XPFor(set, c)
	})
	return &Productivity{
		Score:  heuristics.ProductivityScore(inputs, heuristics.DefaultTargetXPPerDay),
		Inputs: &inputs,
		Source: SourceLocal,
	}, nil
}

// LocalProcedures exposes the local computations under the backend's procedure
// names, for backends that can register Go procedures
func (s *PredictionService) LocalProcedures() map[string]func(ctx context.Context, params map[string]any) (any, error) {
	return map[string]func(ctx context.Context, params map[string]any) (any, error){
		procProductivity: func(ctx context.Context, params map[string]any) (any, error) {
			user, _ := params["p_user_id"].(string)
			from, _ := params["p_start_date"].(time.Time)
			to, _ := params["p_end_date"].(time.Time)
			p, err := s.LocalProductivity(ctx, core.UserID(user), core.DateRange{From: from, To: to})
			if err != nil {
				return nil, err
			}
			return p.Score, nil
		},
		procPredictGoal: func(ctx context.Context, params map[string]any) (any, error) {
			user, _ := params["p_user_id"].(string)
			goal, _ := params["p_goal_id"].(string)
			return s.LocalGoalPrediction(ctx, core.UserID(user), core.GoalID(goal))
		},
	}
}

// parsePrediction reads a single object, or the first row of a set-returning function
func parsePrediction(raw json.RawMessage) (heuristics.GoalPrediction, error) {
	var pred heuristics.GoalPrediction
	if !gjson.ValidBytes(raw) {
		return pred, errors.ExternalServiceError("predictions", errors.New(errors.CodeInvalidInput, "invalid JSON from "+procPredictGoal))
	}
	res := gjson.ParseBytes(raw)
	if res.IsArray() {
		res = res.Get("0")
	}
	if !res.IsObject() {
		return pred, errors.ExternalServiceError("predictions", errors.New(errors.CodeInvalidInput, procPredictGoal+" returned no prediction"))
	}
	if err := json.Unmarshal([]byte(res.Raw), &pred); err != nil {
		return pred, errors.Wrap(err, "failed to decode goal prediction")
	}
	return pred, nil
}

// parseScore accepts a bare number or an object carrying score or productivity_score
func parseScore(raw json.RawMessage) (float64, error) {
	res := gjson.ParseBytes(raw)
	if res.IsArray() {
		res = res.Get("0")
	}
	switch {
	case res.Type == gjson.Number:
		return res.Float(), nil
	case res.Get("score").Exists():
		return res.Get("score").Float(), nil
	case res.Get("productivity_score").Exists():
		return res.Get("productivity_score").Float(), nil
	}
	return 0, errors.ExternalServiceError("predictions", errors.New(errors.CodeInvalidInput, procProductivity+" returned no score"))
}
