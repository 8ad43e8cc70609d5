package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/gdpforecast/accuracy"
	"github.com/sartorproj/gdpforecast/autoarima"
	"github.com/sartorproj/gdpforecast/config"
	"github.com/sartorproj/gdpforecast/forecast"
	"github.com/sartorproj/gdpforecast/metrics"
	"github.com/sartorproj/gdpforecast/timeseries"
	"github.com/sartorproj/gdpforecast/transform"
)

var nan = math.NaN()

// Recorder receives batch metrics. *metrics.Recorder implements it.
type Recorder interface {
	RecordCountry(status string)
	RecordGridPoint(viable bool)
	RecordError(kind string)
	RecordSelection(country string, rmse float64)
	RecordDuration(stage string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordCountry(string)            {}
func (nopRecorder) RecordGridPoint(bool)            {}
func (nopRecorder) RecordError(string)              {}
func (nopRecorder) RecordSelection(string, float64) {}
func (nopRecorder) RecordDuration(string, float64)  {}

// CountryResult is the complete record of one country's run. Err is set
// when the country failed; the stages reached before the failure are kept.
type CountryResult struct {
	Country string
	Lambda  float64
	// Growth is the trimmed growth-rate series the model was selected on.
	Growth *timeseries.Series
	// Trimmed counts growth observations dropped before the last break.
	Trimmed  int
	Breaks   []int
	Selected *autoarima.Result
	Forecast *forecast.Result
	Accuracy *accuracy.Scores
	// Diagnostics is nil when the country failed before forecasting.
	Diagnostics *Diagnostics
	Err         error
	Duration    time.Duration
}

// OK reports whether the country produced a forecast.
func (r *CountryResult) OK() bool {
	return r.Err == nil && r.Forecast != nil
}

// Runner forecasts every country of a panel.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	recorder Recorder
	progress Progress
}

// NewRunner creates a runner. A nil logger or recorder disables that
// output.
func NewRunner(cfg *config.Config, logger *zap.Logger, recorder Recorder) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}
}

// Progress returns the live progress counters.
func (r *Runner) Progress() *Progress {
	return &r.progress
}

// Run processes every country in panel, in sorted id order, with up to
// Run.Workers countries in flight. A failing country is recorded in its
// CountryResult and never stops the others. The error is non-nil only
// when ctx ends before the batch completes; the partial report is still
// returned.
func (r *Runner) Run(ctx context.Context, panel *timeseries.Panel, actuals *timeseries.Panel) (*Report, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, errors.New("empty panel")
	}

	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Config:    r.cfg,
	}

	ids := panel.IDs()
	r.progress.total.Add(int64(len(ids)))
	results := make([]CountryResult, len(ids))

	r.logger.Info("starting forecast run",
		zap.Stringer("run_id", report.RunID),
		zap.Int("countries", len(ids)),
		zap.Int("workers", r.cfg.Run.Workers),
	)

	var g errgroup.Group
	g.SetLimit(max(r.cfg.Run.Workers, 1))
	for i, id := range ids {
		series, _ := panel.Get(id)
		var actual *timeseries.Series
		if actuals != nil {
			actual, _ = actuals.Get(id)
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = CountryResult{Country: id, Lambda: nan, Err: ctx.Err()}
				r.progress.failed.Add(1)
				return nil
			}
			res, _ := r.ProcessCountry(ctx, id, series, actual)
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	report.Countries = results
	report.FinishedAt = time.Now().UTC()

	snap := r.progress.Snapshot()
	r.logger.Info("forecast run finished",
		zap.Stringer("run_id", report.RunID),
		zap.Int64("completed", snap.Completed),
		zap.Int64("failed", snap.Failed),
		zap.Int64("grid_points", snap.GridPoints),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

// ProcessCountry runs the full chain for one country: Box-Cox, growth
// rates, break trimming, grid search, forecast and scoring against actual
// when given. The returned result is never nil; on failure its Err equals
// the returned error.
func (r *Runner) ProcessCountry(ctx context.Context, id string, series, actual *timeseries.Series) (*CountryResult, error) {
	start := time.Now()
	logger := r.logger.With(zap.String("country", id))
	res := &CountryResult{Country: id, Lambda: nan}

	err := r.process(ctx, logger, res, series, actual)
	res.Duration = time.Since(start)
	r.recorder.RecordDuration("country", res.Duration.Seconds())

	if err != nil {
		res.Err = err
		r.progress.failed.Add(1)
		r.recorder.RecordCountry(metrics.StatusFailed)
		r.recorder.RecordError(errorKind(err))
		logger.Warn("country failed", zap.Error(err), zap.Duration("elapsed", res.Duration))
		return res, err
	}

	r.progress.completed.Add(1)
	r.recorder.RecordCountry(metrics.StatusOK)
	logger.Info("country forecast",
		zap.Stringer("order", res.Selected.Order),
		zap.Float64("cv_rmse", res.Selected.RMSE),
		zap.Float64("lambda", res.Lambda),
		zap.Int("trimmed", res.Trimmed),
		zap.Float64s("levels", res.Forecast.Levels),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (r *Runner) process(ctx context.Context, logger *zap.Logger, res *CountryResult, series, actual *timeseries.Series) error {
	if series == nil || series.Len() == 0 {
		return fmt.Errorf("%w: no observations", transform.ErrDegenerateSeries)
	}
	freq := series.Frequency
	if freq < 1 {
		freq = r.cfg.Search.Frequency
	}

	lambda, err := r.lambda(series.Values, freq)
	if err != nil {
		return fmt.Errorf("box-cox lambda: %w", err)
	}
	res.Lambda = lambda

	bc, err := transform.BoxCox(series.Values, lambda)
	if err != nil {
		return fmt.Errorf("box-cox: %w", err)
	}
	growth, err := transform.PercentageChange(bc)
	if err != nil {
		return fmt.Errorf("growth rates: %w", err)
	}

	trimmed, breaks := transform.BreakpointTrim(growth, r.cfg.BreakpointOptions())
	res.Trimmed = len(growth) - len(trimmed)
	res.Breaks = breaks
	if len(breaks) > 0 {
		logger.Debug("structural breaks trimmed", zap.Ints("breaks", breaks), zap.Int("kept", len(trimmed)))
	}

	gs, err := r.growthSeries(series, trimmed, freq)
	if err != nil {
		return err
	}
	res.Growth = gs

	searchStart := time.Now()
	selected, err := autoarima.SelectBestModel(ctx, gs, r.searchConfig(freq))
	r.recorder.RecordDuration("select", time.Since(searchStart).Seconds())
	if err != nil {
		return err
	}
	res.Selected = selected
	r.recorder.RecordSelection(res.Country, selected.RMSE)
	logger.Debug("model selected",
		zap.Stringer("order", selected.Order),
		zap.Int("viable", selected.Viable),
		zap.Int("evaluated", selected.ModelsEvaluated),
	)

	fc, err := forecast.Forecast(gs, selected.Order, bc[len(bc)-1], lambda, r.cfg.Search.Horizon)
	if err != nil {
		return err
	}
	res.Forecast = fc
	res.Diagnostics = diagnose(gs, fc)

	if actual != nil {
		scores, err := accuracy.Score(fc.Levels, alignActual(fc, actual))
		switch {
		case err == nil:
			res.Accuracy = scores
		case errors.Is(err, accuracy.ErrNoData):
			logger.Debug("no actuals overlap the forecast")
		default:
			return fmt.Errorf("accuracy: %w", err)
		}
	}
	return nil
}

func (r *Runner) lambda(values []float64, freq int) (float64, error) {
	if l := r.cfg.Transform.Lambda; l != nil {
		return *l, nil
	}
	return transform.BoxCoxLambda(values, freq, r.cfg.Transform.LambdaLower, r.cfg.Transform.LambdaUpper)
}

// growthSeries dates the trimmed growth rates. With a canonical end year
// the dates are back-calculated from the length alone; otherwise they stay
// aligned with the end of the input series.
func (r *Runner) growthSeries(levels *timeseries.Series, trimmed []float64, freq int) (*timeseries.Series, error) {
	name := levels.Name + " growth"
	if year := r.cfg.Data.CanonicalEndYear; year > 0 {
		gs, err := timeseries.BuildSeries(trimmed, year, freq)
		if err != nil {
			return nil, fmt.Errorf("build growth series: %w", err)
		}
		gs.Name = name
		return gs, nil
	}
	return levels.WithValues(trimmed, name), nil
}

func (r *Runner) searchConfig(freq int) *autoarima.Config {
	sc := r.cfg.SearchConfig()
	sc.Period = freq
	sc.OnEvaluate = func(ev autoarima.Evaluation) {
		r.progress.gridPoints.Add(1)
		r.recorder.RecordGridPoint(ev.Result != nil && ev.Result.Valid())
	}
	return sc
}

// alignActual lines actual up with the forecast periods, NaN where actual
// has no observation.
func alignActual(fc *forecast.Result, actual *timeseries.Series) []float64 {
	out := make([]float64, len(fc.Periods))
	freq := actual.Frequency
	if freq < 1 {
		freq = timeseries.DefaultFrequency
	}
	first := actual.Start.Index(freq)
	for i, p := range fc.Periods {
		j := p.Index(freq) - first
		if j < 0 || j >= actual.Len() {
			out[i] = nan
			continue
		}
		out[i] = actual.Values[j]
	}
	return out
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, transform.ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, autoarima.ErrNoViableModel):
		return "no_viable_model"
	case errors.Is(err, forecast.ErrForecastFit):
		return "forecast_fit"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
