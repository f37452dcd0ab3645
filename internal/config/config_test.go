package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/internal/errors"
)

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_SQLiteDefaults(t *testing.T) {
	t.Setenv("BACKEND", "sqlite")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend.Kind)
	assert.Equal(t, "taskquest.db", cfg.Database.SQLitePath)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_SupabaseNeedsCredentials(t *testing.T) {
	t.Setenv("BACKEND", "supabase")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_KEY", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SUPABASE_KEY", "anon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co", cfg.Backend.SupabaseURL)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("BACKEND", "mongo")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_OAuthAndOverrides(t *testing.T) {
	t.Setenv("BACKEND", "sqlite")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("SLACK_CLIENT_ID", "")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("INSIGHT_FEED_LENGTH", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Contains(t, cfg.OAuth.Providers, "google")
	assert.Equal(t, "gsecret", cfg.OAuth.Providers["google"].ClientSecret)
	assert.NotContains(t, cfg.OAuth.Providers, "slack")
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 50, cfg.Redis.FeedLength, "malformed ints fall back to the default")
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	t.Setenv("BACKEND", "sqlite")
	t.Setenv("FETCH_CONCURRENCY", "0")
	_, err := Load()
	require.Error(t, err)
}
