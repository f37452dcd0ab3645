package app

import (
	"context"
	"strings"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/internal/integrations/oauth"
	"taskquest/internal/integrations/syncmap"
	"taskquest/models"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
)

// IntegrationService connects third-party accounts and imports their items as tasks
type IntegrationService struct {
	registry *oauth.Registry
	tokens   ports.TokenStore
	syncer   *syncmap.Syncer
	now      func() time.Time
}

// NewIntegrationService creates an integration service
func NewIntegrationService(registry *oauth.Registry, tokens ports.TokenStore, syncer *syncmap.Syncer) *IntegrationService {
	return &IntegrationService{
		registry: registry,
		tokens:   tokens,
		syncer:   syncer,
		now:      time.Now,
	}
}

// Providers lists the providers with configured clients
func (s *IntegrationService) Providers() []string {
	return s.registry.Providers()
}

// Authorize returns the provider URL to send the user to and the state the
// callback must echo back
func (s *IntegrationService) Authorize(user core.UserID, provider, redirect string) (url, state string, err error) {
	if user == "" {
		return "", "", errors.Unauthenticated()
	}
	state = core.NewID().String()
	url, err = s.registry.AuthURL(provider, state, redirect)
	if err != nil {
		return "", "", err
	}
	return url, state, nil
}

// Connect exchanges the authorization code and stores the resulting token
func (s *IntegrationService) Connect(ctx context.Context, user core.UserID, provider, code, redirect string) (*models.IntegrationToken, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	provider = strings.ToLower(provider)
	set, err := s.registry.Exchange(ctx, provider, code, redirect)
	if err != nil {
		return nil, err
	}
	token := set.ToModel(user, provider, s.now().UTC())
	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user, "provider": provider}).Info("Integration connected")
	return &token, nil
}

// Sync imports items from a connected provider; unconnected providers are not found
func (s *IntegrationService) Sync(ctx context.Context, user core.UserID, provider string, items []ports.ExternalItem) (syncmap.Result, error) {
	if user == "" {
		return syncmap.Result{}, errors.Unauthenticated()
	}
	provider = strings.ToLower(provider)
	if _, err := s.tokens.GetToken(ctx, user, provider); err != nil {
		return syncmap.Result{}, err
	}
	return s.syncer.Sync(ctx, user, provider, items)
}
