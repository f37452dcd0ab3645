package classify

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/domain/rules"
)

func table(t *testing.T, name string) rules.ThresholdTable {
	t.Helper()
	tbl, err := rules.Default().Table(name)
	require.NoError(t, err)
	return tbl
}

func TestClassify_DefaultTables(t *testing.T) {
	tests := []struct {
		table string
		score float64
		want  string
	}{
		{rules.TableWellness, 8.0, "excellent"},
		{rules.TableWellness, 7.999, "good"},
		{rules.TableWellness, 6, "good"},
		{rules.TableWellness, 4, "average"},
		{rules.TableWellness, 3.99, "poor"},
		{rules.TableWellness, -1, "poor"},
		{rules.TableBurnout, 7, "low"},
		{rules.TableBurnout, 5.5, "moderate"},
		{rules.TableBurnout, 3, "high"},
		{rules.TableBurnout, 2.65, "critical"},
		{rules.TableProductivity, 100, "excellent"},
		{rules.TableProductivity, 60, "good"},
		{rules.TableProductivity, 39.9, "poor"},
		{rules.TableGoalAchievement, 75, "on_track"},
		{rules.TableGoalAchievement, 74.9, "at_risk"},
		{rules.TableGoalAchievement, 0, "off_track"},
		{rules.TableNetworking, 70, "thriving"},
		{rules.TableNetworking, 10, "needs_attention"},
	}

	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.want, func(t *testing.T) {
			got := Classify(tt.score, table(t, tt.table))
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.score, got.Raw)
			assert.NotEmpty(t, got.ColorHint)
		})
	}
}

func TestClassify_NaNFallsToFloor(t *testing.T) {
	got := Classify(math.NaN(), table(t, rules.TableWellness))
	assert.Equal(t, "poor", got.Category)
	assert.Equal(t, "red", got.ColorHint)
}

func TestClassifyNamed_UnknownTable(t *testing.T) {
	_, err := ClassifyNamed(5, rules.Default(), "mood")
	assert.Error(t, err)
}

func TestProperty_ClassifyIsMonotonic(t *testing.T) {
	wellness := rules.Default().Thresholds[rules.TableWellness]
	rank := map[string]int{"poor": 0, "average": 1, "good": 2, "excellent": 3}

	properties := gopter.NewProperties(nil)
	properties.Property("a higher score never lands in a lower band", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := math.Min(a, b), math.Max(a, b)
			return rank[Classify(lo, wellness).Category] <= rank[Classify(hi, wellness).Category]
		},
		gen.Float64Range(-5, 15),
		gen.Float64Range(-5, 15),
	))
	properties.TestingRun(t)
}
