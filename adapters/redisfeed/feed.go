// Package redisfeed keeps a capped, expiring list of recent insights per user in Redis
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/config"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "taskquest:insights:"

// Feed implements ports.InsightFeed
type Feed struct {
	client redis.UniversalClient
	length int
	ttl    time.Duration
}

var _ ports.InsightFeed = (*Feed)(nil)

// Connect opens a client for cfg and checks the server answers
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.ExternalServiceError("redis", fmt.Errorf("failed to connect to %s: %w", cfg.Addr, err))
	}

	log.WithField("addr", cfg.Addr).Info("Connected to Redis insight feed")
	return rdb, nil
}

// New wraps client; length caps each user's list and ttl expires idle lists (0 keeps them)
func New(client redis.UniversalClient, length int, ttl time.Duration) *Feed {
	if length < 1 {
		length = 1
	}
	return &Feed{client: client, length: length, ttl: ttl}
}

// Key returns the list key holding a user's feed
func Key(user core.UserID) string {
	return keyPrefix + user.String()
}

// Save pushes an entry onto the head of the user's list and trims the tail
func (f *Feed) Save(ctx context.Context, user core.UserID, section string, insight metrics.Insight, at time.Time) error {
	payload, err := json.Marshal(ports.FeedEntry{Section: section, GeneratedAt: at.UTC(), Insight: insight})
	if err != nil {
		return errors.Wrap(err, "failed to encode feed entry")
	}

	key := Key(user)
	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(f.length-1))
		if f.ttl > 0 {
			pipe.Expire(ctx, key, f.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.ExternalServiceError("redis", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Entries that no longer decode are skipped.
func (f *Feed) Recent(ctx context.Context, user core.UserID, limit int) ([]ports.FeedEntry, error) {
	if limit < 1 || limit > f.length {
		limit = f.length
	}

	raw, err := f.client.LRange(ctx, Key(user), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.ExternalServiceError("redis", err)
	}

	entries := make([]ports.FeedEntry, 0, len(raw))
	for _, item := range raw {
		var entry ports.FeedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			log.WithError(err).WithField("user_id", user).Warn("Skipping malformed feed entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
