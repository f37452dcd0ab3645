package ports

import (
	"context"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
)

// InsightSink receives generated insights for persistence or delivery
type InsightSink interface {
	// Save stores one section's insight for a user
	Save(ctx context.Context, user core.UserID, section string, insight metrics.Insight, at time.Time) error
}

// FeedEntry is one insight as it was published to a user's feed
type FeedEntry struct {
	Section     string          `json:"section"`
	GeneratedAt time.Time       `json:"generated_at"`
	Insight     metrics.Insight `json:"insight"`
}

// InsightFeed exposes the most recent insights saved for a user
type InsightFeed interface {
	InsightSink

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, user core.UserID, limit int) ([]FeedEntry, error)
}
