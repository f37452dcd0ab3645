// Package notify decides which recommendations reach a user and when.
package notify

import (
	"time"
	_ "time/tzdata"

	"taskquest/domain/metrics"
	"taskquest/models"
)

// Channel is a delivery channel
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSlack Channel = "slack"
)

// Digest frequencies
const (
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
	DigestNever  = "never"
)

// Defaults returns the preferences used for users who never saved any
func Defaults(userID string) models.NotificationPreferences {
	return models.NotificationPreferences{
		UserID:          userID,
		EmailEnabled:    true,
		PushEnabled:     true,
		MinPriority:     string(metrics.PriorityMedium),
		QuietHoursStart: 22,
		QuietHoursEnd:   7,
		DigestFrequency: DigestWeekly,
		Timezone:        "UTC",
	}
}

// Channels lists the enabled channels in a fixed order
func Channels(p models.NotificationPreferences) []Channel {
	var out []Channel
	if p.EmailEnabled {
		out = append(out, ChannelEmail)
	}
	if p.PushEnabled {
		out = append(out, ChannelPush)
	}
	if p.SlackEnabled {
		out = append(out, ChannelSlack)
	}
	return out
}

func location(p models.NotificationPreferences) *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InQuietHours reports whether now falls inside the user's quiet hours.
// The window is [start, end) in the user's time zone and may wrap midnight;
// a negative bound or start == end disables it.
func InQuietHours(p models.NotificationPreferences, now time.Time) bool {
	start, end := p.QuietHoursStart, p.QuietHoursEnd
	if start < 0 || end < 0 || start > 23 || end > 23 || start == end {
		return false
	}
	hour := now.In(location(p)).Hour()
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func minPriority(p models.NotificationPreferences) metrics.Priority {
	switch metrics.Priority(p.MinPriority) {
	case metrics.PriorityHigh, metrics.PriorityMedium, metrics.PriorityLow:
		return metrics.Priority(p.MinPriority)
	}
	return metrics.PriorityLow
}

// Filter returns the recommendations that should be delivered now: nothing
// when no channel is enabled or during quiet hours, otherwise every
// recommendation at or above the minimum priority, in insight order.
func Filter(insights []metrics.Insight, p models.NotificationPreferences, now time.Time) []metrics.Recommendation {
	if len(Channels(p)) == 0 || InQuietHours(p, now) {
		return nil
	}
	threshold := minPriority(p).Rank()
	var out []metrics.Recommendation
	for _, in := range insights {
		for _, rec := range in.Recommendations {
			if rec.Priority.Rank() <= threshold {
				out = append(out, rec)
			}
		}
	}
	return out
}

// Delivery is one recommendation routed to one channel
type Delivery struct {
	Channel        Channel                `json:"channel"`
	Recommendation metrics.Recommendation `json:"recommendation"`
}

// Plan fans the filtered recommendations out to every enabled channel
func Plan(insights []metrics.Insight, p models.NotificationPreferences, now time.Time) []Delivery {
	recs := Filter(insights, p, now)
	channels := Channels(p)
	out := make([]Delivery, 0, len(recs)*len(channels))
	for _, rec := range recs {
		for _, ch := range channels {
			out = append(out, Delivery{Channel: ch, Recommendation: rec})
		}
	}
	return out
}

// DigestDue reports whether a digest should be sent given the last one sent
func DigestDue(p models.NotificationPreferences, last, now time.Time) bool {
	var every time.Duration
	switch p.DigestFrequency {
	case DigestDaily:
		every = 24 * time.Hour
	case DigestWeekly:
		every = 7 * 24 * time.Hour
	default:
		return false
	}
	if InQuietHours(p, now) {
		return false
	}
	return last.IsZero() || now.Sub(last) >= every
}
