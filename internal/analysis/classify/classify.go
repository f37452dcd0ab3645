// Package classify maps scores to categories using threshold and decision tables.
package classify

import (
	"math"

	"taskquest/domain/metrics"
	"taskquest/domain/rules"
)

// Classify returns the label of the first band whose lower bound is <= score.
// Scores below every band, and NaN, fall through to the table's floor.
func Classify(score float64, table rules.ThresholdTable) metrics.ClassifiedScore {
	if !math.IsNaN(score) {
		for _, band := range table.Bands {
			if band.LowerBound <= score {
				return metrics.ClassifiedScore{Raw: score, Category: band.Label, ColorHint: band.Color}
			}
		}
	}
	return metrics.ClassifiedScore{Raw: score, Category: table.Floor.Label, ColorHint: table.Floor.Color}
}

// ClassifyNamed classifies score against the named table of a rule set
func ClassifyNamed(score float64, set *rules.RuleSet, name string) (metrics.ClassifiedScore, error) {
	table, err := set.Table(name)
	if err != nil {
		return metrics.ClassifiedScore{}, err
	}
	return Classify(score, table), nil
}
