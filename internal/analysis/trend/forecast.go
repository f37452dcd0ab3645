package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"taskquest/domain/core"
)

// Projection is a least-squares line fitted to an evenly spaced series
type Projection struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	RSquared   float64 `json:"r_squared"`
	Horizon    int     `json:"horizon"`
	Projected  float64 `json:"projected"`
	SampleSize int     `json:"sample_size"`
}

// Forecast fits value = intercept + slope*index over series and projects it
// horizon steps past the last point. At least two points are required.
func Forecast(series []float64, horizon int) (Projection, error) {
	if len(series) < 2 {
		return Projection{}, core.ErrInsufficientData
	}

	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, series, nil, false)
	r2 := stat.RSquared(xs, series, nil, intercept, slope)
	if math.IsNaN(r2) {
		// constant series: the line is exact
		r2 = 1
	}

	last := float64(len(series) - 1)
	return Projection{
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   r2,
		Horizon:    horizon,
		Projected:  intercept + slope*(last+float64(horizon)),
		SampleSize: len(series),
	}, nil
}

// StepsToReach returns how many steps after the last point the fitted line
// reaches target. ok is false when the line never gets there.
func (p Projection) StepsToReach(target float64) (steps int, ok bool) {
	last := float64(p.SampleSize - 1)
	current := p.Intercept + p.Slope*last
	if current >= target {
		return 0, true
	}
	if p.Slope <= 0 {
		return 0, false
	}
	return int(math.Ceil((target-current)/p.Slope - 1e-9)), true
}
