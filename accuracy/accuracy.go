// Package accuracy scores level forecasts against realized values.
package accuracy

import (
	"errors"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
)

// ErrNoData is returned when no finite forecast/actual pair exists.
var ErrNoData = errors.New("no paired observations")

// Scores summarizes forecast errors with e = actual - forecast.
type Scores struct {
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	MAPE  float64 `json:"mape"`
	SMAPE float64 `json:"smape"`
	N     int     `json:"n"`
}

// Score compares forecast and actual point by point. Pairs where either
// side is NaN are skipped.
//
//	MAE   = mean(|e|)
//	RMSE  = sqrt(mean(e^2))
//	MAPE  = mean(|e| / |forecast|) * 100
//	sMAPE = mean(|e| / (actual + forecast)) * 100
//
// MAPE divides by the forecast and sMAPE by the plain, signed sum of actual
// and forecast without the usual factor of two.
func Score(forecast, actual []float64) (*Scores, error) {
	if len(forecast) != len(actual) {
		return nil, fmt.Errorf("length mismatch: %d forecasts, %d actuals", len(forecast), len(actual))
	}

	var abs, sq, pct, spct []float64
	for i := range forecast {
		f, a := forecast[i], actual[i]
		if math.IsNaN(f) || math.IsNaN(a) {
			continue
		}
		e := a - f
		abs = append(abs, math.Abs(e))
		sq = append(sq, e*e)
		pct = append(pct, math.Abs(e)/math.Abs(f))
		spct = append(spct, math.Abs(e)/(a+f))
	}
	if len(abs) == 0 {
		return nil, ErrNoData
	}

	mae, err := mstats.Mean(abs)
	if err != nil {
		return nil, err
	}
	mse, err := mstats.Mean(sq)
	if err != nil {
		return nil, err
	}
	mape, err := mstats.Mean(pct)
	if err != nil {
		return nil, err
	}
	smape, err := mstats.Mean(spct)
	if err != nil {
		return nil, err
	}

	return &Scores{
		MAE:   mae,
		RMSE:  math.Sqrt(mse),
		MAPE:  mape * 100,
		SMAPE: smape * 100,
		N:     len(abs),
	}, nil
}
