package sarima

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/gdpforecast/timeseries"
)

func quarterlyPattern(n int, slope float64) []float64 {
	seasonal := []float64{-10, 5, 15, -5}
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + seasonal[i%4] + slope*float64(i)
	}
	return values
}

func TestOrderString(t *testing.T) {
	o := Order{P: 1, D: 0, Q: 1, SP: 2, SD: 1, SQ: 0, M: 4}
	assert.Equal(t, "(1,0,1)(2,1,0)[4]", o.String())
	assert.Equal(t, [6]int{1, 0, 1, 2, 1, 0}, o.Tuple())
	assert.Equal(t, 4, o.NumCoeffs())
}

func TestOrderValidate(t *testing.T) {
	assert.NoError(t, Order{P: 1, M: 4}.Validate())
	assert.NoError(t, Order{P: 1}.Validate(), "non-seasonal order ignores the period")
	assert.Error(t, Order{P: -1, M: 4}.Validate())
	assert.Error(t, Order{SP: 1, M: 1}.Validate())
}

func TestOrderMinObservations(t *testing.T) {
	assert.Equal(t, minResidualObs, Order{M: 4}.MinObservations())
	assert.Equal(t, 1+1+1+minResidualObs+3*4, Order{P: 1, D: 1, Q: 1, SP: 1, SD: 1, SQ: 1, M: 4}.MinObservations())
}

func TestNewAllocatesCoefficients(t *testing.T) {
	model := New(Order{P: 2, Q: 1, SP: 1, SQ: 2, M: 4})
	assert.Len(t, model.ARCoeffs, 2)
	assert.Len(t, model.MACoeffs, 1)
	assert.Len(t, model.SARCoeffs, 1)
	assert.Len(t, model.SMACoeffs, 2)
}

func TestWhiteNoiseModelForecastsMean(t *testing.T) {
	values := []float64{1.8, 2.2, 2.0, 1.9, 2.1, 2.3, 1.7, 2.0, 2.0, 2.0, 1.9, 2.1}
	model := New(Order{M: 4})
	require.NoError(t, model.Fit(timeseries.New(values)))

	forecasts, err := model.Predict(4)
	require.NoError(t, err)
	for _, f := range forecasts {
		assert.InDelta(t, 2.0, f, 1e-12)
	}
}

func TestIntegrationReproducesPolynomials(t *testing.T) {
	n := 30

	linear := make([]float64, n)
	quadratic := make([]float64, n)
	for i := range linear {
		linear[i] = 2 + 3*float64(i)
		quadratic[i] = float64(i * i)
	}

	model := New(Order{D: 1})
	require.NoError(t, model.Fit(timeseries.New(linear)))
	forecasts, err := model.Predict(4)
	require.NoError(t, err)
	for h, f := range forecasts {
		assert.InDelta(t, 2+3*float64(n+h), f, 1e-9)
	}

	model = New(Order{D: 2})
	require.NoError(t, model.Fit(timeseries.New(quadratic)))
	forecasts, err = model.Predict(4)
	require.NoError(t, err)
	for h, f := range forecasts {
		x := float64(n + h)
		assert.InDelta(t, x*x, f, 1e-9)
	}
}

func TestSeasonalIntegration(t *testing.T) {
	n := 40
	values := quarterlyPattern(n, 0.5)
	expected := quarterlyPattern(n+8, 0.5)[n:]

	for _, order := range []Order{
		{SD: 1, M: 4},
		{D: 1, SD: 1, M: 4},
	} {
		model := New(order)
		require.NoError(t, model.Fit(timeseries.New(values)), order.String())

		forecasts, err := model.Predict(8)
		require.NoError(t, err)
		assert.InDeltaSlice(t, expected, forecasts, 1e-9, order.String())
	}
}

func TestFitRecoversARCoefficient(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 300
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = 0.6*values[i-1] + rng.NormFloat64()
	}

	model := New(Order{P: 1})
	require.NoError(t, model.Fit(timeseries.New(values)))
	assert.InDelta(t, 0.6, model.ARCoeffs[0], 0.15)
	assert.Less(t, math.Abs(model.ARCoeffs[0]), coeffBound)
}

func TestFitFailures(t *testing.T) {
	tests := []struct {
		name   string
		order  Order
		values []float64
	}{
		{"too short", Order{P: 1, M: 4}, make([]float64, 5)},
		{"seasonal too short", Order{SP: 2, SD: 1, M: 4}, make([]float64, 20)},
		{"non-finite", Order{M: 4}, append(make([]float64, 20), math.NaN())},
		{"invalid order", Order{SQ: 1, M: 0}, make([]float64, 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.order).Fit(timeseries.New(tt.values))
			assert.True(t, errors.Is(err, ErrFitFailed), "got %v", err)
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	_, err := New(Order{P: 1}).Predict(4)
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Nil(t, New(Order{}).Residuals())
	assert.Nil(t, New(Order{}).Summary())
}

func TestPredictWithInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]float64, 60)
	for i := range values {
		values[i] = 2 + 0.5*rng.NormFloat64()
	}

	model := New(Order{P: 1, Q: 1, M: 4})
	require.NoError(t, model.Fit(timeseries.New(values)))

	forecasts, lower, upper, err := model.PredictWithInterval(4, 0.9)
	require.NoError(t, err)
	require.Len(t, forecasts, 4)
	for h := range forecasts {
		assert.Less(t, lower[h], forecasts[h])
		assert.Greater(t, upper[h], forecasts[h])
	}

	_, err = model.Predict(0)
	assert.Error(t, err)
}

func TestSeasonalModelFit(t *testing.T) {
	values := quarterlyPattern(80, 0.5)
	for i := range values {
		values[i] += float64(i%3 - 1)
	}

	model := New(Order{P: 1, SP: 1, SD: 1, M: 4})
	require.NoError(t, model.Fit(timeseries.New(values)))

	forecasts, err := model.Predict(4)
	require.NoError(t, err)
	for _, f := range forecasts {
		assert.False(t, math.IsNaN(f))
		assert.InDelta(t, 150, f, 40)
	}
	assert.Len(t, model.Residuals(), 76)
	assert.Len(t, model.FittedValues(), 76)
}

func TestSummary(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 48)
	for i := range values {
		values[i] = 1 + 0.2*rng.NormFloat64()
	}

	model := New(Order{P: 1, Q: 1, SP: 1, M: 4})
	require.NoError(t, model.Fit(timeseries.New(values)))

	summary := model.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, 48, summary.NObs)
	require.NotNil(t, summary.LjungBox)
	assert.Equal(t, summaryLags-3, summary.LjungBox.DOF)
	assert.False(t, math.IsNaN(summary.AICc))

	summary.ARCoeffs[0] = 42
	assert.NotEqual(t, 42.0, model.ARCoeffs[0], "summary must not alias the model")
}
