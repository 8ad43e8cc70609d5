package transform

import (
	"fmt"
	"math"
)

// PercentageChange returns the period-on-period growth rate in percent,
// normalized by the later observation:
//
//	g[t-1] = (x[t] - x[t-1]) / x[t] * 100
//
// The result has len(values)-1 elements.
func PercentageChange(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 values for a growth rate", ErrDegenerateSeries)
	}

	out := make([]float64, len(values)-1)
	for t := 1; t < len(values); t++ {
		if values[t] == 0 || math.IsNaN(values[t]) {
			return nil, fmt.Errorf("%w: zero or missing denominator at index %d", ErrDegenerateSeries, t)
		}
		out[t-1] = (values[t] - values[t-1]) / values[t] * 100
	}
	return out, nil
}
