package app

import (
	"context"
	"encoding/json"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/models"
	"taskquest/ports"
)

const (
	insightsTable    = "insights"
	tokensTable      = "integration_tokens"
	preferencesTable = "notification_preferences"
)

// BackendInsightSink keeps the latest insight per user and section in the insights table
type BackendInsightSink struct {
	backend ports.Backend
}

// NewBackendInsightSink creates a sink that upserts into backend
func NewBackendInsightSink(backend ports.Backend) ports.InsightSink {
	return &BackendInsightSink{backend: backend}
}

// Save upserts the insight on (user_id, section)
func (s *BackendInsightSink) Save(ctx context.Context, user core.UserID, section string, insight metrics.Insight, at time.Time) error {
	recs, err := json.Marshal(insight.Recommendations)
	if err != nil {
		return errors.Wrap(err, "failed to encode recommendations")
	}
	stored := models.StoredInsight{
		ID:              core.NewID().String(),
		UserID:          user.String(),
		Section:         section,
		Title:           insight.Title,
		Description:     insight.Description,
		Category:        insight.Category,
		Confidence:      insight.Confidence,
		Recommendations: string(recs),
		GeneratedAt:     at.UTC(),
	}
	row := ports.Row{
		"id":              stored.ID,
		"user_id":         stored.UserID,
		"section":         stored.Section,
		"title":           stored.Title,
		"description":     stored.Description,
		"category":        stored.Category,
		"confidence":      stored.Confidence,
		"recommendations": stored.Recommendations,
		"generated_at":    stored.GeneratedAt,
	}
	if _, err := s.backend.Upsert(ctx, insightsTable, []ports.Row{row}, []string{"user_id", "section"}); err != nil {
		return errors.Wrapf(err, "failed to store %s insight", section)
	}
	return nil
}

// BackendTokenStore keeps OAuth tokens in the integration_tokens table
type BackendTokenStore struct {
	backend ports.Backend
}

// NewBackendTokenStore creates a token store over backend
func NewBackendTokenStore(backend ports.Backend) ports.TokenStore {
	return &BackendTokenStore{backend: backend}
}

// SaveToken upserts on (user_id, provider)
func (s *BackendTokenStore) SaveToken(ctx context.Context, token models.IntegrationToken) error {
	row := ports.Row{
		"user_id":       token.UserID,
		"provider":      token.Provider,
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"scope":         token.Scope,
		"updated_at":    token.UpdatedAt,
	}
	if !token.ExpiresAt.IsZero() {
		row["expires_at"] = token.ExpiresAt
	}
	if _, err := s.backend.Upsert(ctx, tokensTable, []ports.Row{row}, []string{"user_id", "provider"}); err != nil {
		return errors.Wrapf(err, "failed to store %s token", token.Provider)
	}
	return nil
}

// GetToken returns the stored token or a not-found error
func (s *BackendTokenStore) GetToken(ctx context.Context, user core.UserID, provider string) (*models.IntegrationToken, error) {
	rows, err := s.backend.Query(ctx, ports.QuerySpec{
		Table:   tokensTable,
		Filters: []ports.Filter{ports.Eq("user_id", user.String()), ports.Eq("provider", provider)},
		Limit:   1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load integration token")
	}
	if len(rows) == 0 {
		return nil, core.NewNotFoundError("integration token", provider)
	}
	tokens, err := fetch.DecodeRows[models.IntegrationToken](rows)
	if err != nil {
		return nil, err
	}
	return &tokens[0], nil
}
