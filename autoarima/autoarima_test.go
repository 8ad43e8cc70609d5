package autoarima

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/gdpforecast/crossval"
	"github.com/sartorproj/gdpforecast/sarima"
	"github.com/sartorproj/gdpforecast/timeseries"
)

// growthSeries mimics a quarterly growth-rate series around 2%.
func growthSeries(n int) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 2 + 0.3*math.Sin(float64(i)*1.3) + 0.1*math.Cos(float64(i)*0.7)
	}
	return timeseries.New(values)
}

func TestGrid(t *testing.T) {
	grid := Grid(1, 2, 4)
	require.Len(t, grid, 8*27)

	assert.Equal(t, sarima.Order{M: 4}, grid[0])
	assert.Equal(t, sarima.Order{SQ: 1, M: 4}, grid[1])
	assert.Equal(t, sarima.Order{SD: 1, M: 4}, grid[3])
	assert.Equal(t, sarima.Order{P: 1, D: 1, Q: 1, SP: 2, SD: 2, SQ: 2, M: 4}, grid[len(grid)-1])

	for i := 1; i < len(grid); i++ {
		prev, cur := grid[i-1].Tuple(), grid[i].Tuple()
		assert.Less(t, tupleKey(prev), tupleKey(cur), "grid must be lexicographic at %d", i)
	}

	assert.Len(t, Grid(0, 0, 4), 1)
	assert.Empty(t, Grid(-1, 0, 4))
}

func tupleKey(t [6]int) int {
	key := 0
	for _, v := range t {
		key = key*10 + v
	}
	return key
}

func TestSingleGridPointSelectsWhiteNoise(t *testing.T) {
	config := DefaultConfig()
	config.NonseasonalMax = 0
	config.SeasonalMax = 0

	for _, n := range []int{30, 45} {
		result, err := SelectBestModel(context.Background(), growthSeries(n), config)
		require.NoError(t, err)
		assert.Equal(t, [6]int{}, result.Order.Tuple())
		assert.Equal(t, 1, result.ModelsEvaluated)
	}
}

func TestSelectBestModelDeterministic(t *testing.T) {
	config := DefaultConfig()
	config.SeasonalMax = 1
	series := growthSeries(44)

	first, err := SelectBestModel(context.Background(), series, config)
	require.NoError(t, err)
	second, err := SelectBestModel(context.Background(), series, config)
	require.NoError(t, err)

	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, first.RMSE, second.RMSE)
	assert.Equal(t, 64, first.ModelsEvaluated)
}

func TestWorkersMatchSequential(t *testing.T) {
	config := DefaultConfig()
	config.SeasonalMax = 1
	series := growthSeries(40)

	sequential, err := SelectBestModel(context.Background(), series, config)
	require.NoError(t, err)

	config.Workers = 4
	parallel, err := SelectBestModel(context.Background(), series, config)
	require.NoError(t, err)

	assert.Equal(t, sequential.Order, parallel.Order)
	assert.Equal(t, sequential.RMSE, parallel.RMSE)
	require.Len(t, parallel.Candidates, len(sequential.Candidates))
	for i := range sequential.Candidates {
		assert.Equal(t, sequential.Candidates[i].Order, parallel.Candidates[i].Order)
	}
}

func TestSelectBestModelPicksMinimumRMSE(t *testing.T) {
	// A steady trend is forecast exactly once differenced.
	values := make([]float64, 36)
	for i := range values {
		values[i] = 1 + 0.05*float64(i)
	}

	config := DefaultConfig()
	config.SeasonalMax = 0
	result, err := SelectBestModel(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Order.D)
	for _, c := range result.Candidates {
		if c.Valid() {
			assert.GreaterOrEqual(t, c.RMSE, result.RMSE)
		}
	}
}

func TestSelectBestTieBreaksOnEnumerationOrder(t *testing.T) {
	candidates := []*crossval.Result{
		{Order: sarima.Order{P: 0}, RMSE: math.NaN(), MAE: math.NaN()},
		{Order: sarima.Order{Q: 1}, RMSE: 0.5, MAE: 0.4},
		{Order: sarima.Order{P: 1}, RMSE: 0.5, MAE: 0.3},
		{Order: sarima.Order{D: 1}, RMSE: 0.7, MAE: 0.1},
	}

	result, err := selectBest(candidates)
	require.NoError(t, err)
	assert.Equal(t, sarima.Order{Q: 1}, result.Order)
	assert.Equal(t, 3, result.Viable)
	assert.Equal(t, 4, result.ModelsEvaluated)
}

func TestAllNaNIsNoViableModel(t *testing.T) {
	candidates := []*crossval.Result{
		{RMSE: math.NaN()},
		{RMSE: math.NaN()},
	}
	_, err := selectBest(candidates)
	assert.True(t, errors.Is(err, ErrNoViableModel))

	// Too short for any cross-validation origin.
	_, err = SelectBestModel(context.Background(), growthSeries(12), DefaultConfig())
	assert.ErrorIs(t, err, ErrNoViableModel)
}

func TestOnEvaluateReportsEveryGridPoint(t *testing.T) {
	config := DefaultConfig()
	config.SeasonalMax = 0
	config.Workers = 3

	var calls atomic.Int64
	seen := make([]atomic.Bool, 8)
	config.OnEvaluate = func(e Evaluation) {
		calls.Add(1)
		assert.Equal(t, 8, e.Total)
		seen[e.Index].Store(true)
	}

	_, err := SelectBestModel(context.Background(), growthSeries(30), config)
	require.NoError(t, err)
	assert.Equal(t, int64(8), calls.Load())
	for i := range seen {
		assert.True(t, seen[i].Load(), "grid point %d not reported", i)
	}
}

func TestSelectBestModelHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SelectBestModel(ctx, growthSeries(40), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)

	config := DefaultConfig()
	config.Timeout = time.Nanosecond
	_, err = SelectBestModel(context.Background(), growthSeries(40), config)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.NonseasonalMax = -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Period = 1
	assert.Error(t, bad.Validate())

	_, err := SelectBestModel(context.Background(), growthSeries(30), bad)
	assert.Error(t, err)
}
