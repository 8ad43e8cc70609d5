package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sartorproj/gdpforecast/autoarima"
	"github.com/sartorproj/gdpforecast/config"
	"github.com/sartorproj/gdpforecast/forecast"
	"github.com/sartorproj/gdpforecast/metrics"
	"github.com/sartorproj/gdpforecast/timeseries"
	"github.com/sartorproj/gdpforecast/transform"
)

type fakeRecorder struct {
	mu        sync.Mutex
	countries map[string]int
	grid      int
	errs      map[string]int
	selected  map[string]float64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		countries: map[string]int{},
		errs:      map[string]int{},
		selected:  map[string]float64{},
	}
}

func (f *fakeRecorder) RecordCountry(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countries[status]++
}

func (f *fakeRecorder) RecordGridPoint(bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grid++
}

func (f *fakeRecorder) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind]++
}

func (f *fakeRecorder) RecordSelection(country string, rmse float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected[country] = rmse
}

func (f *fakeRecorder) RecordDuration(string, float64) {}

// steady returns n quarterly levels growing by rate per quarter from 100,
// starting in 2008-Q1.
func steady(t *testing.T, n int, rate float64) *timeseries.Series {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 * math.Pow(1+rate, float64(i))
	}
	s, err := timeseries.NewWithStart(values, timeseries.Period{Year: 2008, Sub: 1}, 4)
	require.NoError(t, err)
	return s
}

// testConfig keeps the grid small: p,d,q <= 1 and no seasonal terms.
func testConfig() *config.Config {
	cfg := config.Default()
	lambda := 1.0
	cfg.Transform.Lambda = &lambda
	cfg.Search.SeasonalMax = 0
	cfg.Run.Workers = 2
	return cfg
}

func TestProcessCountrySteadyGrowth(t *testing.T) {
	runner := NewRunner(testConfig(), zap.NewNop(), nil)

	res, err := runner.ProcessCountry(context.Background(), "AAA", steady(t, 48, 0.02), nil)
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.Equal(t, 1.0, res.Lambda)
	assert.Zero(t, res.Trimmed)
	assert.Empty(t, res.Breaks)
	assert.Equal(t, 47, res.Growth.Len())
	assert.Equal(t, timeseries.Period{Year: 2008, Sub: 2}, res.Growth.Start)
	assert.Equal(t, 8, res.Selected.ModelsEvaluated)

	fc := res.Forecast
	require.Len(t, fc.Growth, 4)
	for h, g := range fc.Growth {
		assert.InDelta(t, 2, g, 0.1, "growth at step %d", h)
	}

	assert.Equal(t, timeseries.Period{Year: 2020, Sub: 1}, fc.Periods[0])
	assert.Equal(t, timeseries.Period{Year: 2020, Sub: 4}, fc.Periods[3])

	for h, level := range fc.Levels {
		assert.InDelta(t, fc.BoxCoxLevels[h]+1, level, 1e-9)
		want := 100 * math.Pow(1.02, float64(48+h))
		assert.InEpsilon(t, want, level, 0.01, "level at step %d", h)
	}

	require.NotNil(t, res.Diagnostics)
	assert.NotNil(t, res.Diagnostics.KPSS)
	assert.Nil(t, res.Accuracy)
}

func TestProcessCountryScoresActuals(t *testing.T) {
	runner := NewRunner(testConfig(), zap.NewNop(), nil)

	actual, err := timeseries.NewWithStart([]float64{
		100 * math.Pow(1.02, 48),
		100 * math.Pow(1.02, 49),
		100 * math.Pow(1.02, 50),
	}, timeseries.Period{Year: 2020, Sub: 1}, 4)
	require.NoError(t, err)

	res, err := runner.ProcessCountry(context.Background(), "AAA", steady(t, 48, 0.02), actual)
	require.NoError(t, err)
	require.NotNil(t, res.Accuracy)
	assert.Equal(t, 3, res.Accuracy.N)
	assert.Less(t, res.Accuracy.MAPE, 1.0)
}

func TestProcessCountryCanonicalEndYear(t *testing.T) {
	cfg := testConfig()
	cfg.Data.CanonicalEndYear = 2020
	runner := NewRunner(cfg, zap.NewNop(), nil)

	res, err := runner.ProcessCountry(context.Background(), "AAA", steady(t, 48, 0.02), nil)
	require.NoError(t, err)

	// 47 growth rates: ceil(47/4) = 12 years back, 47 % 4 + 1 = Q4
	assert.Equal(t, timeseries.Period{Year: 2008, Sub: 4}, res.Growth.Start)
}

func TestProcessCountryFailures(t *testing.T) {
	runner := NewRunner(testConfig(), zap.NewNop(), nil)
	ctx := context.Background()

	bad := steady(t, 48, 0.02)
	bad.Values[10] = 0
	res, err := runner.ProcessCountry(ctx, "BAD", bad, nil)
	require.ErrorIs(t, err, transform.ErrDegenerateSeries)
	assert.Equal(t, err, res.Err)
	assert.False(t, res.OK())
	assert.Nil(t, res.Forecast)

	// too short for a single cross-validation origin
	res, err = runner.ProcessCountry(ctx, "SHORT", steady(t, 15, 0.02), nil)
	require.ErrorIs(t, err, autoarima.ErrNoViableModel)
	assert.NotNil(t, res.Growth)
	assert.Nil(t, res.Selected)

	_, err = runner.ProcessCountry(ctx, "NONE", nil, nil)
	assert.ErrorIs(t, err, transform.ErrDegenerateSeries)

	snap := runner.Progress().Snapshot()
	assert.Equal(t, int64(3), snap.Failed)
	assert.Zero(t, snap.Completed)
}

func TestRunIsolatesFailingCountry(t *testing.T) {
	panel := timeseries.NewPanel(4)
	require.NoError(t, panel.Add("CCC", steady(t, 48, 0.015)))
	require.NoError(t, panel.Add("AAA", steady(t, 48, 0.02)))
	bad := steady(t, 48, 0.02)
	bad.Values[20] = -5
	require.NoError(t, panel.Add("BBB", bad))

	rec := newFakeRecorder()
	runner := NewRunner(testConfig(), zap.NewNop(), rec)

	report, err := runner.Run(context.Background(), panel, nil)
	require.NoError(t, err)
	require.Len(t, report.Countries, 3)

	assert.Equal(t, "AAA", report.Countries[0].Country)
	assert.Equal(t, "BBB", report.Countries[1].Country)
	assert.Equal(t, "CCC", report.Countries[2].Country)

	assert.True(t, report.Countries[0].OK())
	assert.ErrorIs(t, report.Countries[1].Err, transform.ErrDegenerateSeries)
	assert.True(t, report.Countries[2].OK())

	ccc, ok := report.Country("CCC")
	require.True(t, ok)
	for _, g := range ccc.Forecast.Growth {
		assert.InDelta(t, 1.5, g, 0.1)
	}

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "BBB", failed[0].Country)

	snap := runner.Progress().Snapshot()
	assert.Equal(t, ProgressSnapshot{Total: 3, Completed: 2, Failed: 1, GridPoints: 16}, snap)
	assert.Zero(t, snap.Remaining())

	assert.Equal(t, 2, rec.countries[metrics.StatusOK])
	assert.Equal(t, 1, rec.countries[metrics.StatusFailed])
	assert.Equal(t, 1, rec.errs["degenerate_series"])
	assert.Equal(t, 16, rec.grid)
	assert.Contains(t, rec.selected, "AAA")
	assert.NotContains(t, rec.selected, "BBB")
	assert.NotEqual(t, report.RunID.String(), "")
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunWorkersDoNotChangeResults(t *testing.T) {
	panel := timeseries.NewPanel(4)
	require.NoError(t, panel.Add("AAA", steady(t, 48, 0.02)))
	require.NoError(t, panel.Add("BBB", steady(t, 48, 0.01)))

	sequential := testConfig()
	sequential.Run.Workers = 1
	seqReport, err := NewRunner(sequential, nil, nil).Run(context.Background(), panel, nil)
	require.NoError(t, err)

	parallel := testConfig()
	parallel.Run.Workers = 4
	parallel.Search.Workers = 3
	parReport, err := NewRunner(parallel, nil, nil).Run(context.Background(), panel, nil)
	require.NoError(t, err)

	for i := range seqReport.Countries {
		seq, par := seqReport.Countries[i], parReport.Countries[i]
		assert.Equal(t, seq.Selected.Order, par.Selected.Order)
		assert.Equal(t, seq.Forecast.Levels, par.Forecast.Levels)
	}
}

func TestRunCanceled(t *testing.T) {
	panel := timeseries.NewPanel(4)
	require.NoError(t, panel.Add("AAA", steady(t, 48, 0.02)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(testConfig(), nil, nil).Run(ctx, panel, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	require.Len(t, report.Countries, 1)
	assert.ErrorIs(t, report.Countries[0].Err, context.Canceled)
}

func TestRunEmptyPanel(t *testing.T) {
	_, err := NewRunner(nil, nil, nil).Run(context.Background(), timeseries.NewPanel(4), nil)
	assert.Error(t, err)
}

func TestReportOutputs(t *testing.T) {
	panel := timeseries.NewPanel(4)
	require.NoError(t, panel.Add("AAA", steady(t, 48, 0.02)))
	require.NoError(t, panel.Add("BBB", steady(t, 10, 0.02)))

	report, err := NewRunner(testConfig(), nil, nil).Run(context.Background(), panel, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var doc struct {
		RunID     string `json:"run_id"`
		Countries []struct {
			Country   string   `json:"country"`
			OK        bool     `json:"ok"`
			Error     string   `json:"error"`
			Lambda    *float64 `json:"lambda"`
			Selection *struct {
				Order string `json:"order"`
			} `json:"selection"`
			Forecast []struct {
				Period string   `json:"period"`
				Level  *float64 `json:"level"`
			} `json:"forecast"`
		} `json:"countries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, report.RunID.String(), doc.RunID)
	require.Len(t, doc.Countries, 2)

	aaa := doc.Countries[0]
	assert.True(t, aaa.OK)
	require.NotNil(t, aaa.Selection)
	assert.Equal(t, report.Countries[0].Selected.Order.String(), aaa.Selection.Order)
	require.Len(t, aaa.Forecast, 4)
	assert.Equal(t, "2020-Q1", aaa.Forecast[0].Period)
	require.NotNil(t, aaa.Forecast[0].Level)

	bbb := doc.Countries[1]
	assert.False(t, bbb.OK)
	assert.Contains(t, bbb.Error, "no viable model")

	buf.Reset()
	require.NoError(t, report.WriteForecastsCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "series,period,value", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "AAA,2020-Q1,"))
	assert.True(t, strings.HasPrefix(lines[4], "AAA,2020-Q4,"))
}

func TestReportJSONNullsNonFinite(t *testing.T) {
	report := &Report{
		Countries: []CountryResult{{
			Country: "NAN",
			Lambda:  math.NaN(),
			Selected: &autoarima.Result{
				RMSE: math.Inf(1),
				MAE:  math.NaN(),
			},
			Err: errors.New("boom"),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	country := doc["countries"].([]any)[0].(map[string]any)
	assert.Nil(t, country["lambda"])
	assert.Equal(t, "boom", country["error"])
	sel := country["selection"].(map[string]any)
	assert.Nil(t, sel["cv_rmse"])
	assert.Nil(t, sel["cv_mae"])
}

func TestAlignActual(t *testing.T) {
	fc := &forecast.Result{Periods: []timeseries.Period{
		{Year: 2020, Sub: 1}, {Year: 2020, Sub: 2}, {Year: 2020, Sub: 3},
	}}
	actual, err := timeseries.NewWithStart([]float64{10, 11}, timeseries.Period{Year: 2019, Sub: 4}, 4)
	require.NoError(t, err)

	got := alignActual(fc, actual)
	require.Len(t, got, 3)
	assert.Equal(t, 11.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", transform.ErrDegenerateSeries), "degenerate_series"},
		{fmt.Errorf("x: %w", autoarima.ErrNoViableModel), "no_viable_model"},
		{fmt.Errorf("x: %w", forecast.ErrForecastFit), "forecast_fit"},
		{fmt.Errorf("model search: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err))
	}
}
