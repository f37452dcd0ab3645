package redisfeed

import (
	"context"
	"os"
	"testing"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "taskquest:insights:u-42", Key(core.UserID("u-42")))
}

func TestNew_ClampsLength(t *testing.T) {
	f := New(nil, 0, time.Hour)
	assert.Equal(t, 1, f.length)
}

// Runs against a real server when REDIS_ADDR is set
func TestFeed_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	user := core.UserID("feed-test-" + core.NewID().String())
	defer client.Del(ctx, Key(user))

	feed := New(client, 3, time.Minute)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"one", "two", "three", "four"} {
		err := feed.Save(ctx, user, "goals", metrics.Insight{Title: title}, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	entries, err := feed.Recent(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "four", entries[0].Insight.Title)
	assert.Equal(t, "two", entries[2].Insight.Title)
	assert.Equal(t, "goals", entries[0].Section)

	ttl, err := client.TTL(ctx, Key(user)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
