// Package crossval implements rolling-origin cross-validation of seasonal
// ARIMA orders.
package crossval

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/gdpforecast/sarima"
	"github.com/sartorproj/gdpforecast/timeseries"
)

// Options configures the rolling-origin scan.
type Options struct {
	Horizon   int // Forecast steps per origin (default: 4)
	MinWindow int // Length of the first training window (default: 20)
}

// DefaultOptions returns the reference settings for quarterly data.
func DefaultOptions() Options {
	return Options{
		Horizon:   4,
		MinWindow: 20,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Horizon < 1 {
		o.Horizon = def.Horizon
	}
	if o.MinWindow < 1 {
		o.MinWindow = def.MinWindow
	}
	return o
}

// Result holds the forecast errors of one order on one series.
type Result struct {
	Order sarima.Order
	// Errors[i][h] is actual - forecast for origin i at step h+1. Cells
	// beyond the end of the series or belonging to a failed fit are NaN.
	Errors [][]float64
	// HorizonRMSE is the RMSE per forecast step over the defined cells.
	HorizonRMSE []float64
	RMSE        float64
	MAE         float64
	// Origins is the number of training windows scanned.
	Origins int
	// FailedOrigins counts windows where the model could not be fit.
	FailedOrigins int
}

// Valid reports whether the aggregate error is defined.
func (r *Result) Valid() bool {
	return r != nil && !math.IsNaN(r.RMSE)
}

// Evaluate scores order on series by rolling-origin cross-validation.
//
// For every origin t from MinWindow to len-1 the model is fit on
// Values[:t] and forecasts Horizon steps, which are compared with the
// observations that follow. Fit and forecast failures are recorded as a
// NaN row and do not stop the scan. RMSE and MAE average the defined cells
// only and are NaN when none exist. The only error returned is the
// context's.
func Evaluate(ctx context.Context, series *timeseries.Series, order sarima.Order, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	values := series.Values
	n := len(values)

	res := &Result{Order: order}
	for t := opts.MinWindow; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := nanRow(opts.Horizon)
		forecasts, err := forecastFrom(series.Slice(0, t), order, opts.Horizon)
		if err != nil {
			res.FailedOrigins++
		} else {
			for h := 0; h < opts.Horizon && t+h < n; h++ {
				row[h] = values[t+h] - forecasts[h]
			}
		}

		res.Errors = append(res.Errors, row)
		res.Origins++
	}

	res.RMSE, res.MAE = aggregate(res.Errors)
	res.HorizonRMSE = horizonRMSE(res.Errors, opts.Horizon)
	return res, nil
}

func forecastFrom(train *timeseries.Series, order sarima.Order, horizon int) ([]float64, error) {
	model := sarima.New(order)
	if err := model.Fit(train); err != nil {
		return nil, err
	}
	return model.Predict(horizon)
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// aggregate returns RMSE and MAE over the non-NaN cells.
func aggregate(errs [][]float64) (rmse, mae float64) {
	var sq, abs []float64
	for _, row := range errs {
		for _, e := range row {
			if math.IsNaN(e) {
				continue
			}
			sq = append(sq, e*e)
			abs = append(abs, math.Abs(e))
		}
	}
	if len(sq) == 0 {
		return math.NaN(), math.NaN()
	}
	return math.Sqrt(stat.Mean(sq, nil)), stat.Mean(abs, nil)
}

func horizonRMSE(errs [][]float64, horizon int) []float64 {
	out := make([]float64, horizon)
	for h := range out {
		var sq []float64
		for _, row := range errs {
			if e := row[h]; !math.IsNaN(e) {
				sq = append(sq, e*e)
			}
		}
		if len(sq) == 0 {
			out[h] = math.NaN()
			continue
		}
		out[h] = math.Sqrt(stat.Mean(sq, nil))
	}
	return out
}
