package aggregate

import (
	"github.com/montanaflynn/stats"

	"taskquest/domain/metrics"
)

// Summary describes the distribution of per-window counts
type Summary struct {
	Windows       int     `json:"windows"`
	ActiveWindows int     `json:"active_windows"`
	TotalCount    int     `json:"total_count"`
	TotalSum      float64 `json:"total_sum"`
	MeanCount     float64 `json:"mean_count"`
	MedianCount   float64 `json:"median_count"`
	P90Count      float64 `json:"p90_count"`
	MaxCount      int     `json:"max_count"`
	BestWindowAt  string  `json:"best_window,omitempty"`
}

// Totals returns the total count and sum across windows
func Totals(windows []metrics.AggregateWindow) (int, float64) {
	count := 0
	sum := 0.0
	for _, w := range windows {
		count += w.Count
		sum += w.Sum
	}
	return count, sum
}

// BestWindow returns the window with the highest count; ties go to the
// earliest window. ok is false when windows is empty.
func BestWindow(windows []metrics.AggregateWindow) (best metrics.AggregateWindow, ok bool) {
	for i, w := range windows {
		if i == 0 || w.Count > best.Count {
			best = w
			ok = true
		}
	}
	return best, ok
}

// PercentOf returns part as a percentage of total, or 0 when total is 0
func PercentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// Counts returns the per-window counts as floats
func Counts(windows []metrics.AggregateWindow) []float64 {
	out := make([]float64, len(windows))
	for i, w := range windows {
		out[i] = float64(w.Count)
	}
	return out
}

// Sums returns the per-window sums
func Sums(windows []metrics.AggregateWindow) []float64 {
	out := make([]float64, len(windows))
	for i, w := range windows {
		out[i] = w.Sum
	}
	return out
}

// Summarize computes count statistics across windows
func Summarize(windows []metrics.AggregateWindow) Summary {
	s := Summary{Windows: len(windows)}
	if len(windows) == 0 {
		return s
	}

	s.TotalCount, s.TotalSum = Totals(windows)
	for _, w := range windows {
		if w.Count > 0 {
			s.ActiveWindows++
		}
	}

	counts := Counts(windows)
	s.MeanCount, _ = stats.Mean(counts)
	s.MedianCount, _ = stats.Median(counts)
	if p90, err := stats.Percentile(counts, 90); err == nil {
		s.P90Count = p90
	}
	if best, ok := BestWindow(windows); ok {
		s.MaxCount = best.Count
		s.BestWindowAt = best.Start.Format("2006-01-02")
	}
	return s
}
