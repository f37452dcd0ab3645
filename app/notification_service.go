package app

import (
	"context"
	"fmt"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/internal/notify"
	"taskquest/models"
	"taskquest/ports"
)

// NotificationService stores delivery preferences and plans which
// recommendations go out right now
type NotificationService struct {
	backend   ports.Backend
	analytics *AnalyticsService
	now       func() time.Time
}

// NewNotificationService creates a notification service
func NewNotificationService(backend ports.Backend, analytics *AnalyticsService) *NotificationService {
	return &NotificationService{
		backend:   backend,
		analytics: analytics,
		now:       time.Now,
	}
}

// Preferences returns the user's saved preferences, or the defaults
func (s *NotificationService) Preferences(ctx context.Context, user core.UserID) (models.NotificationPreferences, error) {
	if user == "" {
		return models.NotificationPreferences{}, errors.Unauthenticated()
	}
	rows, err := s.backend.Query(ctx, ports.QuerySpec{
		Table:   preferencesTable,
		Filters: []ports.Filter{ports.Eq("user_id", user.String())},
		Limit:   1,
	})
	if err != nil {
		return models.NotificationPreferences{}, errors.Wrap(err, "failed to load notification preferences")
	}
	if len(rows) == 0 {
		return notify.Defaults(user.String()), nil
	}
	prefs, err := fetch.DecodeRows[models.NotificationPreferences](rows)
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	return prefs[0], nil
}

// SavePreferences validates and upserts p for user
func (s *NotificationService) SavePreferences(ctx context.Context, user core.UserID, p models.NotificationPreferences) (models.NotificationPreferences, error) {
	if user == "" {
		return p, errors.Unauthenticated()
	}
	if err := validatePreferences(p); err != nil {
		return p, err
	}
	p.UserID = user.String()
	p.UpdatedAt = s.now().UTC()
	// the digest clock is only moved by Digest
	p.LastDigestAt = nil

	if _, err := s.backend.Upsert(ctx, preferencesTable, []ports.Row{preferencesRow(p)}, []string{"user_id"}); err != nil {
		return p, errors.Wrap(err, "failed to save notification preferences")
	}
	return p, nil
}

// Pending builds the dashboard and returns the deliveries due now under the
// user's preferences
func (s *NotificationService) Pending(ctx context.Context, user core.UserID) ([]notify.Delivery, error) {
	prefs, err := s.Preferences(ctx, user)
	if err != nil {
		return nil, err
	}
	insights, err := s.insights(ctx, user)
	if err != nil {
		return nil, err
	}
	return notify.Plan(insights, prefs, s.now()), nil
}

// DigestResult is the outcome of one digest run
type DigestResult struct {
	Due        bool              `json:"due"`
	Deliveries []notify.Delivery `json:"deliveries"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
}

// Digest plans the periodic digest when the user's frequency says one is due
// and records it as sent. When nothing is due the preferences are untouched.
func (s *NotificationService) Digest(ctx context.Context, user core.UserID) (DigestResult, error) {
	prefs, err := s.Preferences(ctx, user)
	if err != nil {
		return DigestResult{}, err
	}
	now := s.now()
	var last time.Time
	if prefs.LastDigestAt != nil {
		last = *prefs.LastDigestAt
	}
	if !notify.DigestDue(prefs, last, now) {
		return DigestResult{Deliveries: []notify.Delivery{}}, nil
	}

	insights, err := s.insights(ctx, user)
	if err != nil {
		return DigestResult{}, err
	}
	sent := now.UTC()
	prefs.LastDigestAt = &sent
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = sent
	}
	if _, err := s.backend.Upsert(ctx, preferencesTable, []ports.Row{preferencesRow(prefs)}, []string{"user_id"}); err != nil {
		return DigestResult{}, errors.Wrap(err, "failed to record digest")
	}
	return DigestResult{
		Due:        true,
		Deliveries: notify.Plan(insights, prefs, now),
		SentAt:     &sent,
	}, nil
}

func (s *NotificationService) insights(ctx context.Context, user core.UserID) ([]metrics.Insight, error) {
	dash, err := s.analytics.Dashboard(ctx, user, s.analytics.DefaultRange())
	if err != nil {
		return nil, err
	}
	var insights []metrics.Insight
	for _, section := range insight.AllSections {
		if res := dash.Sections[section]; res.Insight != nil {
			insights = append(insights, *res.Insight)
		}
	}
	return insights, nil
}

// preferencesRow leaves last_digest_at out when unset so the stored value survives the upsert
func preferencesRow(p models.NotificationPreferences) ports.Row {
	row := ports.Row{
		"user_id":           p.UserID,
		"email_enabled":     p.EmailEnabled,
		"push_enabled":      p.PushEnabled,
		"slack_enabled":     p.SlackEnabled,
		"min_priority":      p.MinPriority,
		"quiet_hours_start": p.QuietHoursStart,
		"quiet_hours_end":   p.QuietHoursEnd,
		"digest_frequency":  p.DigestFrequency,
		"timezone":          p.Timezone,
		"updated_at":        p.UpdatedAt,
	}
	if p.LastDigestAt != nil {
		row["last_digest_at"] = *p.LastDigestAt
	}
	return row
}

func validatePreferences(p models.NotificationPreferences) error {
	switch metrics.Priority(p.MinPriority) {
	case metrics.PriorityHigh, metrics.PriorityMedium, metrics.PriorityLow:
	default:
		return errors.InvalidInput(fmt.Sprintf("min_priority must be high, medium or low, got %q", p.MinPriority))
	}
	switch p.DigestFrequency {
	case notify.DigestDaily, notify.DigestWeekly, notify.DigestNever:
	default:
		return errors.InvalidInput(fmt.Sprintf("digest_frequency must be daily, weekly or never, got %q", p.DigestFrequency))
	}
	for _, h := range []int{p.QuietHoursStart, p.QuietHoursEnd} {
		if h < -1 || h > 23 {
			return errors.InvalidInput("quiet hours must be -1 or an hour between 0 and 23")
		}
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return errors.InvalidInput(fmt.Sprintf("unknown timezone %q", p.Timezone))
		}
	}
	return nil
}
