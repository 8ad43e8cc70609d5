// Package autoarima implements exhaustive seasonal ARIMA order selection by
// rolling-origin cross-validation.
package autoarima

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/gdpforecast/crossval"
	"github.com/sartorproj/gdpforecast/sarima"
	"github.com/sartorproj/gdpforecast/timeseries"
)

// ErrNoViableModel is returned when no order in the grid produced a defined
// cross-validation error.
var ErrNoViableModel = errors.New("no viable model")

// Config holds configuration for the grid search.
type Config struct {
	NonseasonalMax int           // Upper bound for p, d and q (default: 1)
	SeasonalMax    int           // Upper bound for P, D and Q (default: 2)
	Period         int           // Seasonal period m (default: 4)
	Horizon        int           // Cross-validation forecast steps (default: 4)
	MinWindow      int           // First cross-validation training window (default: 20)
	Workers        int           // Concurrent candidate evaluations (default: 1)
	Timeout        time.Duration // Deadline for the whole search, 0 for none

	// OnEvaluate is called after each candidate is scored. With Workers > 1
	// it is called from several goroutines.
	OnEvaluate func(Evaluation)
}

// Evaluation reports one scored grid point.
type Evaluation struct {
	Index  int // Position in enumeration order
	Total  int // Grid size
	Result *crossval.Result
}

// DefaultConfig returns the reference search configuration.
func DefaultConfig() *Config {
	return &Config{
		NonseasonalMax: 1,
		SeasonalMax:    2,
		Period:         4,
		Horizon:        4,
		MinWindow:      20,
		Workers:        1,
	}
}

// Validate checks the search bounds.
func (c *Config) Validate() error {
	if c.NonseasonalMax < 0 || c.SeasonalMax < 0 {
		return fmt.Errorf("search bounds must be non-negative, got %d and %d", c.NonseasonalMax, c.SeasonalMax)
	}
	if c.SeasonalMax > 0 && c.Period < 2 {
		return fmt.Errorf("seasonal search needs a period of at least 2, got %d", c.Period)
	}
	return nil
}

// Result represents the selected model and the full search record.
type Result struct {
	Order sarima.Order
	RMSE  float64
	MAE   float64
	// Best is the cross-validation record of the selected order.
	Best *crossval.Result
	// Candidates holds every grid point in enumeration order.
	Candidates      []*crossval.Result
	ModelsEvaluated int
	// Viable counts candidates with a defined RMSE.
	Viable int
}

// Grid enumerates {0..nonseasonalMax}^3 x {0..seasonalMax}^3 in
// lexicographic (p, d, q, P, D, Q) order.
func Grid(nonseasonalMax, seasonalMax, period int) []sarima.Order {
	ns := nonseasonalMax + 1
	s := seasonalMax + 1
	if ns < 1 || s < 1 {
		return nil
	}

	orders := make([]sarima.Order, 0, ns*ns*ns*s*s*s)
	for p := 0; p < ns; p++ {
		for d := 0; d < ns; d++ {
			for q := 0; q < ns; q++ {
				for sp := 0; sp < s; sp++ {
					for sd := 0; sd < s; sd++ {
						for sq := 0; sq < s; sq++ {
							orders = append(orders, sarima.Order{
								P: p, D: d, Q: q,
								SP: sp, SD: sd, SQ: sq,
								M: period,
							})
						}
					}
				}
			}
		}
	}
	return orders
}

// SelectBestModel scores every order in the grid with rolling-origin
// cross-validation and returns the one with the lowest RMSE. Ties go to the
// earliest order in enumeration sequence, and candidates with undefined
// RMSE never win. The outcome does not depend on Workers.
func SelectBestModel(ctx context.Context, series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	grid := Grid(config.NonseasonalMax, config.SeasonalMax, config.Period)
	opts := crossval.Options{Horizon: config.Horizon, MinWindow: config.MinWindow}

	candidates, err := evaluateGrid(ctx, series, grid, opts, config)
	if err != nil {
		return nil, fmt.Errorf("model search: %w", err)
	}

	return selectBest(candidates)
}

// evaluateGrid scores every order, writing each result to its own slot.
func evaluateGrid(ctx context.Context, series *timeseries.Series, grid []sarima.Order, opts crossval.Options, config *Config) ([]*crossval.Result, error) {
	results := make([]*crossval.Result, len(grid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))

	for i, order := range grid {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			res, err := crossval.Evaluate(gctx, series, order, opts)
			if err != nil {
				return err
			}
			results[i] = res

			if config.OnEvaluate != nil {
				config.OnEvaluate(Evaluation{Index: i, Total: len(grid), Result: res})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func selectBest(candidates []*crossval.Result) (*Result, error) {
	result := &Result{
		Candidates:      candidates,
		ModelsEvaluated: len(candidates),
		RMSE:            math.NaN(),
		MAE:             math.NaN(),
	}

	bestRMSE := math.Inf(1)
	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		result.Viable++

		if c.RMSE < bestRMSE {
			bestRMSE = c.RMSE
			result.Best = c
		}
	}

	if result.Best == nil {
		return nil, fmt.Errorf("%w: all %d candidates have undefined error", ErrNoViableModel, len(candidates))
	}

	result.Order = result.Best.Order
	result.RMSE = result.Best.RMSE
	result.MAE = result.Best.MAE
	return result, nil
}
