package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskquest/domain/metrics"
	"taskquest/models"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 30, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{"wraps midnight late", 22, 7, 23, true},
		{"wraps midnight early", 22, 7, 3, true},
		{"wraps midnight boundary end", 22, 7, 7, false},
		{"wraps midnight daytime", 22, 7, 12, false},
		{"same day inside", 12, 14, 13, true},
		{"same day outside", 12, 14, 14, false},
		{"disabled", -1, 7, 3, false},
		{"empty window", 5, 5, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.NotificationPreferences{QuietHoursStart: tt.start, QuietHoursEnd: tt.end, Timezone: "UTC"}
			assert.Equal(t, tt.want, InQuietHours(p, at(tt.hour)))
		})
	}
}

func TestInQuietHours_UsesTimezone(t *testing.T) {
	p := models.NotificationPreferences{QuietHoursStart: 22, QuietHoursEnd: 7, Timezone: "Asia/Tokyo"}
	// 14:30 UTC is 23:30 in Tokyo
	assert.True(t, InQuietHours(p, at(14)))

	p.Timezone = "Not/AZone"
	assert.False(t, InQuietHours(p, at(14)))
}

func TestFilter(t *testing.T) {
	insights := []metrics.Insight{
		{Recommendations: []metrics.Recommendation{
			{Text: "a", Priority: metrics.PriorityHigh},
			{Text: "b", Priority: metrics.PriorityLow},
		}},
		{Recommendations: []metrics.Recommendation{{Text: "c", Priority: metrics.PriorityMedium}}},
	}
	p := Defaults("u1")

	got := Filter(insights, p, at(12))
	assert.Equal(t, []string{"a", "c"}, texts(got))

	p.MinPriority = "high"
	assert.Equal(t, []string{"a"}, texts(Filter(insights, p, at(12))))

	p.MinPriority = ""
	assert.Len(t, Filter(insights, p, at(12)), 3)

	assert.Empty(t, Filter(insights, p, at(23)), "quiet hours")

	p.EmailEnabled, p.PushEnabled = false, false
	assert.Empty(t, Filter(insights, p, at(12)), "no channels")
}

func TestPlan(t *testing.T) {
	insights := []metrics.Insight{{Recommendations: []metrics.Recommendation{{Text: "a", Priority: metrics.PriorityHigh}}}}
	p := Defaults("u1")
	p.SlackEnabled = true

	got := Plan(insights, p, at(12))
	assert.Len(t, got, 3)
	assert.Equal(t, ChannelEmail, got[0].Channel)
	assert.Equal(t, ChannelSlack, got[2].Channel)
}

func TestDigestDue(t *testing.T) {
	p := Defaults("u1")
	p.DigestFrequency = DigestDaily
	assert.True(t, DigestDue(p, time.Time{}, at(12)))
	assert.False(t, DigestDue(p, at(12).Add(-time.Hour), at(12)))
	assert.True(t, DigestDue(p, at(12).AddDate(0, 0, -1), at(12)))
	assert.False(t, DigestDue(p, time.Time{}, at(23)), "quiet hours")

	p.DigestFrequency = DigestNever
	assert.False(t, DigestDue(p, time.Time{}, at(12)))
}

func texts(recs []metrics.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out
}
