package ports

import (
	"context"
	"time"

	"taskquest/domain/core"
	"taskquest/models"
)

// TokenStore persists OAuth tokens per user and provider
type TokenStore interface {
	SaveToken(ctx context.Context, token models.IntegrationToken) error
	GetToken(ctx context.Context, user core.UserID, provider string) (*models.IntegrationToken, error)
}

// ExternalItem is a to-do, event or note pulled from an integration
type ExternalItem struct {
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}
