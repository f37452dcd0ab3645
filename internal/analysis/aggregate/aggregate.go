// Package aggregate buckets metric samples into fixed calendar windows.
package aggregate

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"taskquest/domain/metrics"
)

// DefaultCategoryTag is the sample tag used for the category distribution
const DefaultCategoryTag = "category"

// Aggregator groups samples into daily, weekly (Monday start) or monthly windows
type Aggregator struct {
	location    *time.Location
	categoryTag string
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithLocation sets the time zone used to compute bucket boundaries
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.location = loc
		}
	}
}

// WithCategoryTag sets the tag whose value keys the distribution
func WithCategoryTag(tag string) Option {
	return func(a *Aggregator) {
		if tag != "" {
			a.categoryTag = tag
		}
	}
}

// New creates an aggregator. Buckets are computed in UTC unless WithLocation is given.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{location: time.UTC, categoryTag: DefaultCategoryTag}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate is a convenience wrapper around a default UTC aggregator
func Aggregate(samples []metrics.MetricSample, granularity metrics.Granularity, from, to time.Time) []metrics.AggregateWindow {
	return New().Aggregate(samples, granularity, from, to)
}

// Aggregate returns one window per bucket overlapping [from, to), in
// chronological order, including buckets with no samples. Samples outside
// the range or with a zero timestamp or non-finite value are skipped.
// Unknown granularities are treated as daily.
func (a *Aggregator) Aggregate(samples []metrics.MetricSample, granularity metrics.Granularity, from, to time.Time) []metrics.AggregateWindow {
	if !from.Before(to) {
		return nil
	}
	if !granularity.Valid() {
		granularity = metrics.Daily
	}

	var starts []time.Time
	index := make(map[time.Time]int)
	for s := a.BucketStart(from, granularity); s.Before(to); s = next(s, granularity) {
		index[s] = len(starts)
		starts = append(starts, s)
	}

	values := make([][]float64, len(starts))
	dists := make([]map[string]int, len(starts))
	for i := range dists {
		dists[i] = make(map[string]int)
	}

	for _, sample := range samples {
		if sample.Timestamp.IsZero() || math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
			continue
		}
		if sample.Timestamp.Before(from) || !sample.Timestamp.Before(to) {
			continue
		}
		i, ok := index[a.BucketStart(sample.Timestamp, granularity)]
		if !ok {
			continue
		}
		values[i] = append(values[i], sample.Value)

		category := sample.Tag(a.categoryTag)
		if category == "" {
			category = metrics.OtherCategory
		}
		dists[i][category]++
	}

	windows := make([]metrics.AggregateWindow, len(starts))
	for i, start := range starts {
		w := metrics.AggregateWindow{
			Start:        start,
			End:          next(start, granularity),
			Count:        len(values[i]),
			Distribution: dists[i],
		}
		if w.Count > 0 {
			// stats only errors on empty input
			w.Sum, _ = stats.Sum(values[i])
			w.Average, _ = stats.Mean(values[i])
		}
		windows[i] = w
	}
	return windows
}

// BucketStart truncates t to the start of its bucket in the aggregator's location
func (a *Aggregator) BucketStart(t time.Time, granularity metrics.Granularity) time.Time {
	t = t.In(a.location)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.location)
	switch granularity {
	case metrics.Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case metrics.Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, a.location)
	default:
		return day
	}
}

func next(start time.Time, granularity metrics.Granularity) time.Time {
	switch granularity {
	case metrics.Weekly:
		return start.AddDate(0, 0, 7)
	case metrics.Monthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
