// Package trend compares adjacent periods and projects simple linear forecasts.
package trend

import (
	"math"

	"taskquest/domain/metrics"
)

// Detect compares current with previous. The direction follows the raw
// comparison; the magnitude is the percentage change, or 0 when previous is
// not positive.
func Detect(current, previous float64) metrics.TrendResult {
	if math.IsNaN(current) || math.IsNaN(previous) {
		return metrics.StableTrend
	}

	result := metrics.TrendResult{Direction: metrics.Stable}
	switch {
	case current > previous:
		result.Direction = metrics.Improving
	case current < previous:
		result.Direction = metrics.Declining
	}
	if previous > 0 {
		result.Magnitude = (current - previous) / previous * 100
	}
	return result
}

// DetectSeries compares the last value of a chronological series with the one before it
func DetectSeries(values []float64) metrics.TrendResult {
	if len(values) < 2 {
		return metrics.StableTrend
	}
	return Detect(values[len(values)-1], values[len(values)-2])
}

// DetectSamples is DetectSeries over sample values in the given order
func DetectSamples(samples []metrics.MetricSample) metrics.TrendResult {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return DetectSeries(values)
}

// Metric selects which window field a trend is computed over
type Metric string

const (
	MetricCount   Metric = "count"
	MetricSum     Metric = "sum"
	MetricAverage Metric = "average"
)

func (m Metric) of(w metrics.AggregateWindow) float64 {
	switch m {
	case MetricSum:
		return w.Sum
	case MetricAverage:
		return w.Average
	default:
		return float64(w.Count)
	}
}

// DetectWindows compares the last period windows with the period windows
// before them, e.g. the last seven days against the prior seven. Counts and
// sums are totalled; averages are averaged over the period. Fewer than
// 2*period windows yields a stable trend.
func DetectWindows(windows []metrics.AggregateWindow, period int, metric Metric) metrics.TrendResult {
	if period < 1 || len(windows) < 2*period {
		return metrics.StableTrend
	}
	n := len(windows)
	current := total(windows[n-period:], metric)
	previous := total(windows[n-2*period:n-period], metric)
	if metric == MetricAverage {
		current /= float64(period)
		previous /= float64(period)
	}
	return Detect(current, previous)
}

func total(windows []metrics.AggregateWindow, metric Metric) float64 {
	sum := 0.0
	for _, w := range windows {
		sum += metric.of(w)
	}
	return sum
}
