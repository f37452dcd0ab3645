package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/config"
	"taskquest/internal/errors"
	"taskquest/internal/integrations/oauth"
	"taskquest/internal/integrations/syncmap"
	"taskquest/internal/notify"
	"taskquest/internal/testkit"
	"taskquest/models"
	"taskquest/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestBackendInsightSink_UpsertsPerSection(t *testing.T) {
	b := testkit.NewInMemoryBackend()
	sink := NewBackendInsightSink(b)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	in := metrics.Insight{
		Title:      "Burnout risk is low",
		Category:   "good",
		Confidence: 0.7,
		Recommendations: []metrics.Recommendation{
			{Text: "Keep it up", Priority: metrics.PriorityLow},
		},
	}

	require.NoError(t, sink.Save(context.Background(), "u1", "wellness", in, at))
	in.Title = "Burnout risk is moderate"
	require.NoError(t, sink.Save(context.Background(), "u1", "wellness", in, at.Add(time.Hour)))
	require.NoError(t, sink.Save(context.Background(), "u1", "goals", in, at))

	rows := b.Rows("insights")
	require.Len(t, rows, 2)
	assert.Equal(t, "Burnout risk is moderate", rows[0]["title"])
	assert.Contains(t, rows[0]["recommendations"], `"Keep it up"`)
	assert.Equal(t, at.Add(time.Hour), rows[0]["generated_at"])
}

func TestBackendTokenStore_RoundTrip(t *testing.T) {
	b := testkit.NewInMemoryBackend()
	store := NewBackendTokenStore(b)
	ctx := context.Background()

	_, err := store.GetToken(ctx, "u1", "google")
	assert.True(t, core.IsNotFoundError(err))

	token := models.IntegrationToken{
		UserID:      "u1",
		Provider:    "google",
		AccessToken: "at",
		Scope:       "calendar",
		ExpiresAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveToken(ctx, token))
	token.AccessToken = "at2"
	require.NoError(t, store.SaveToken(ctx, token))

	got, err := store.GetToken(ctx, "u1", "google")
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)
	assert.Equal(t, token.ExpiresAt, got.ExpiresAt)
	assert.Len(t, b.Rows("integration_tokens"), 1)
}

func TestNotificationService_Preferences(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationService(f.backend, f.analytics())
	ctx := context.Background()

	prefs, err := s.Preferences(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.Equal(t, notify.Defaults(f.cfg.UserID.String()), prefs)

	prefs.MinPriority = "urgent"
	_, err = s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	prefs.MinPriority = "high"
	prefs.SlackEnabled = true
	prefs.Timezone = "Europe/Lisbon"
	_, err = s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)

	loaded, err := s.Preferences(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.Equal(t, "high", loaded.MinPriority)
	assert.True(t, loaded.SlackEnabled)
	assert.Equal(t, "Europe/Lisbon", loaded.Timezone)
}

func TestNotificationService_PendingHonorsChannels(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationService(f.backend, f.analytics())
	s.now = func() time.Time { return f.cfg.End.Add(12 * time.Hour) }
	ctx := context.Background()

	prefs := notify.Defaults(f.cfg.UserID.String())
	prefs.EmailEnabled, prefs.PushEnabled = false, false
	_, err := s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)

	pending, err := s.Pending(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	prefs.SlackEnabled = true
	prefs.MinPriority = string(metrics.PriorityLow)
	_, err = s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)

	pending, err = s.Pending(ctx, f.cfg.UserID)
	require.NoError(t, err)
	for _, d := range pending {
		assert.Equal(t, notify.ChannelSlack, d.Channel)
	}
}

func TestNotificationService_DigestFollowsFrequency(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationService(f.backend, f.analytics())
	clock := f.cfg.End.Add(12 * time.Hour)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	prefs := notify.Defaults(f.cfg.UserID.String())
	prefs.DigestFrequency = notify.DigestDaily
	prefs.MinPriority = string(metrics.PriorityLow)
	_, err := s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)

	first, err := s.Digest(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.True(t, first.Due)
	require.NotNil(t, first.SentAt)
	assert.Equal(t, clock.UTC(), *first.SentAt)

	clock = clock.Add(3 * time.Hour)
	again, err := s.Digest(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.False(t, again.Due)
	assert.Empty(t, again.Deliveries)

	// saving preferences keeps the digest clock
	_, err = s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)
	loaded, err := s.Preferences(ctx, f.cfg.UserID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastDigestAt)
	assert.Equal(t, first.SentAt.UTC(), loaded.LastDigestAt.UTC())

	clock = clock.Add(24 * time.Hour)
	next, err := s.Digest(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.True(t, next.Due)
}

func TestNotificationService_DigestNever(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationService(f.backend, f.analytics())
	s.now = func() time.Time { return f.cfg.End.Add(12 * time.Hour) }
	ctx := context.Background()

	prefs := notify.Defaults(f.cfg.UserID.String())
	prefs.DigestFrequency = notify.DigestNever
	_, err := s.SavePreferences(ctx, f.cfg.UserID, prefs)
	require.NoError(t, err)

	res, err := s.Digest(ctx, f.cfg.UserID)
	require.NoError(t, err)
	assert.False(t, res.Due)
	assert.Nil(t, res.SentAt)
}

func TestIntegrationService_ConnectThenSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer srv.Close()

	registry := oauth.NewRegistry(
		config.OAuthConfig{Providers: map[string]config.OAuthClient{"google": {ClientID: "id", ClientSecret: "secret"}}},
		oauth.WithHTTPClient(srv.Client()),
		oauth.WithEndpoint("google", oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}),
	)
	b := testkit.NewInMemoryBackend()
	s := NewIntegrationService(registry, NewBackendTokenStore(b), syncmap.NewSyncer(b, insight.StaticRules{Set: rules.Default()}))
	ctx := context.Background()
	items := []ports.ExternalItem{{ExternalID: "ev-1", Title: "Dentist appointment"}}

	_, err := s.Sync(ctx, "u1", "google", items)
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))

	url, state, err := s.Authorize("u1", "google", "https://app.test/cb")
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.Contains(t, url, "state="+state)

	token, err := s.Connect(ctx, "u1", "Google", "code-1", "https://app.test/cb")
	require.NoError(t, err)
	assert.Equal(t, "google", token.Provider)
	assert.Equal(t, "at", token.AccessToken)

	res, err := s.Sync(ctx, "u1", "google", items)
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Len(t, b.Rows("tasks"), 1)
}
