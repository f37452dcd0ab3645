// Package oauth exchanges provider authorization codes for tokens.
// Only the code → token contract is implemented; the browser flow belongs to the client.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/config"
	"taskquest/internal/errors"
	"taskquest/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Provider names
const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
	ProviderSlack   = "slack"
	ProviderNotion  = "notion"
	ProviderGitHub  = "github"
)

// Provider describes one OAuth authorization server
type Provider struct {
	Name     string
	Endpoint oauth2.Endpoint
	Scopes   []string
	// extra authorization URL parameters
	AuthParams map[string]string
}

// KnownProviders are the providers TaskQuest integrates with
var KnownProviders = map[string]Provider{
	ProviderGoogle: {
		Name:       ProviderGoogle,
		Endpoint:   endpoints.Google,
		Scopes:     []string{"https://www.googleapis.com/auth/calendar.readonly", "https://www.googleapis.com/auth/tasks.readonly"},
		AuthParams: map[string]string{"prompt": "consent"},
	},
	ProviderOutlook: {
		Name:     ProviderOutlook,
		Endpoint: endpoints.AzureAD("common"),
		Scopes:   []string{"offline_access", "Calendars.Read", "Tasks.Read"},
	},
	ProviderSlack: {
		Name:     ProviderSlack,
		Endpoint: endpoints.Slack,
		Scopes:   []string{"channels:history", "users:read"},
	},
	ProviderNotion: {
		Name: ProviderNotion,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://api.notion.com/v1/oauth/authorize",
			TokenURL:  "https://api.notion.com/v1/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		AuthParams: map[string]string{"owner": "user"},
	},
	ProviderGitHub: {
		Name:     ProviderGitHub,
		Endpoint: endpoints.GitHub,
		Scopes:   []string{"repo", "read:user"},
	},
}

// TokenSet is the result of a successful code exchange
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
	Scope        string    `json:"scope,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Registry holds one oauth2.Config per configured provider
type Registry struct {
	configs    map[string]*oauth2.Config
	params     map[string]map[string]string
	httpClient *http.Client
}

// Option configures a Registry
type Option func(*Registry)

// WithHTTPClient sets the client used for token requests
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) { r.httpClient = c }
}

// WithEndpoint overrides a provider's endpoint
func WithEndpoint(provider string, ep oauth2.Endpoint) Option {
	return func(r *Registry) {
		if c, ok := r.configs[provider]; ok {
			c.Endpoint = ep
		}
	}
}

// NewRegistry registers every known provider that has client credentials in cfg
func NewRegistry(cfg config.OAuthConfig, opts ...Option) *Registry {
	r := &Registry{
		configs: make(map[string]*oauth2.Config),
		params:  make(map[string]map[string]string),
	}
	for name, client := range cfg.Providers {
		p, ok := KnownProviders[name]
		if !ok || client.ClientID == "" {
			continue
		}
		r.configs[name] = &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			RedirectURL:  client.RedirectURL,
			Endpoint:     p.Endpoint,
			Scopes:       p.Scopes,
		}
		r.params[name] = p.AuthParams
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers lists the configured provider names
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) config(provider, redirect string) (*oauth2.Config, error) {
	c, ok := r.configs[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderUnknown, provider)
	}
	cc := *c
	if redirect != "" {
		cc.RedirectURL = redirect
	}
	return &cc, nil
}

// AuthURL returns the provider URL a user is sent to; state is echoed back to the callback
func (r *Registry) AuthURL(provider, state, redirect string) (string, error) {
	c, err := r.config(provider, redirect)
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	for k, v := range r.params[strings.ToLower(provider)] {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return c.AuthCodeURL(state, opts...), nil
}

// Exchange trades an authorization code for tokens
func (r *Registry) Exchange(ctx context.Context, provider, code, redirect string) (*TokenSet, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.InvalidInput("authorization code is required")
	}
	c, err := r.config(provider, redirect)
	if err != nil {
		return nil, err
	}
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	token, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, errors.ExternalServiceError(provider, err)
	}

	set := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		Expiry:       token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		set.Scope = scope
	}
	if set.ExpiresIn == 0 && !token.Expiry.IsZero() {
		set.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return set, nil
}

// ToModel converts a token set into the stored integration token
func (t *TokenSet) ToModel(user core.UserID, provider string, now time.Time) models.IntegrationToken {
	expires := t.Expiry
	if expires.IsZero() && t.ExpiresIn > 0 {
		expires = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return models.IntegrationToken{
		UserID:       user.String(),
		Provider:     provider,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        t.Scope,
		ExpiresAt:    expires,
		UpdatedAt:    now,
	}
}
