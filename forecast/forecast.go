// Package forecast fits the selected order on a growth-rate series and maps
// its forecasts back to GDP levels.
package forecast

import (
	"errors"
	"fmt"

	"github.com/sartorproj/gdpforecast/sarima"
	"github.com/sartorproj/gdpforecast/timeseries"
	"github.com/sartorproj/gdpforecast/transform"
)

// ErrForecastFit is returned when the final model cannot be fit or its
// forecasts cannot be mapped back to levels.
var ErrForecastFit = errors.New("forecast fit failed")

// Confidence of the growth prediction intervals.
const intervalConfidence = 0.95

// Result holds the forecast of one country.
type Result struct {
	Order sarima.Order
	// Growth is the forecast growth rate in percent per period.
	Growth      []float64
	GrowthLower []float64
	GrowthUpper []float64
	// BoxCoxLevels are the compounded levels before the inverse transform.
	BoxCoxLevels []float64
	// Levels are the forecast GDP levels.
	Levels    []float64
	Lambda    float64
	LastLevel float64
	Periods   []timeseries.Period
	Model     *sarima.Model `json:"-"`
}

// Forecast fits order on the full growth series, forecasts horizon steps of
// growth and compounds them onto lastBoxCoxLevel:
//
//	level[0] = lastBoxCoxLevel
//	level[i] = level[i-1] * (1 + growth[i]/100)
//
// The compounded levels are mapped back with the inverse Box-Cox transform
// for lambda. Any failure wraps ErrForecastFit; no partial result is
// returned.
func Forecast(series *timeseries.Series, order sarima.Order, lastBoxCoxLevel, lambda float64, horizon int) (*Result, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", ErrForecastFit, horizon)
	}

	model := sarima.New(order)
	if err := model.Fit(series); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrForecastFit, order, err)
	}

	growth, lower, upper, err := model.PredictWithInterval(horizon, intervalConfidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrForecastFit, order, err)
	}

	bcLevels := Compound(lastBoxCoxLevel, growth)
	levels, err := transform.InvBoxCox(bcLevels, lambda)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForecastFit, err)
	}

	periods := make([]timeseries.Period, horizon)
	freq := series.Frequency
	if freq < 1 {
		freq = timeseries.DefaultFrequency
	}
	end := series.End()
	for h := range periods {
		periods[h] = end.Add(h+1, freq)
	}

	return &Result{
		Order:        order,
		Growth:       growth,
		GrowthLower:  lower,
		GrowthUpper:  upper,
		BoxCoxLevels: bcLevels,
		Levels:       levels,
		Lambda:       lambda,
		LastLevel:    lastBoxCoxLevel,
		Periods:      periods,
		Model:        model,
	}, nil
}

// Compound applies growth rates in percent sequentially to start.
func Compound(start float64, growth []float64) []float64 {
	levels := make([]float64, len(growth))
	prev := start
	for i, g := range growth {
		prev *= 1 + g/100
		levels[i] = prev
	}
	return levels
}
