package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sartorproj/gdpforecast/config"
	"github.com/sartorproj/gdpforecast/timeseries"
)

// Report is the outcome of one batch run, countries in sorted id order.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Config     *config.Config
	Countries  []CountryResult
}

// Failed returns the countries that did not produce a forecast.
func (r *Report) Failed() []CountryResult {
	var out []CountryResult
	for _, c := range r.Countries {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// Country returns the result for id.
func (r *Report) Country(id string) (*CountryResult, bool) {
	for i := range r.Countries {
		if r.Countries[i].Country == id {
			return &r.Countries[i], true
		}
	}
	return nil, false
}

// JSON document layout. Non-finite numbers become null.
type reportDoc struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Config     *config.Config `json:"config,omitempty"`
	Countries  []countryDoc   `json:"countries"`
}

type countryDoc struct {
	Country     string         `json:"country"`
	OK          bool           `json:"ok"`
	Error       string         `json:"error,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	Lambda      *float64       `json:"lambda"`
	Trimmed     int            `json:"trimmed"`
	Breaks      []int          `json:"breaks,omitempty"`
	GrowthStart string         `json:"growth_start,omitempty"`
	GrowthObs   int            `json:"growth_obs"`
	Selection   *selectionDoc  `json:"selection,omitempty"`
	Forecast    []forecastRow  `json:"forecast,omitempty"`
	Accuracy    map[string]any `json:"accuracy,omitempty"`
	Diagnostics *diagDoc       `json:"diagnostics,omitempty"`
}

type selectionDoc struct {
	Order           string     `json:"order"`
	RMSE            *float64   `json:"cv_rmse"`
	MAE             *float64   `json:"cv_mae"`
	HorizonRMSE     []*float64 `json:"cv_horizon_rmse,omitempty"`
	FailedOrigins   int        `json:"failed_origins"`
	ModelsEvaluated int        `json:"models_evaluated"`
	Viable          int        `json:"viable"`
}

type forecastRow struct {
	Period      string   `json:"period"`
	Growth      *float64 `json:"growth"`
	GrowthLower *float64 `json:"growth_lower"`
	GrowthUpper *float64 `json:"growth_upper"`
	Level       *float64 `json:"level"`
}

type diagDoc struct {
	KPSSStatistic     *float64 `json:"kpss_statistic,omitempty"`
	KPSSPValue        *float64 `json:"kpss_p_value,omitempty"`
	LjungBoxStatistic *float64 `json:"ljung_box_statistic,omitempty"`
	LjungBoxPValue    *float64 `json:"ljung_box_p_value,omitempty"`
	DurbinWatson      *float64 `json:"durbin_watson"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func at(values []float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return finite(values[i])
}

func (r *Report) document() reportDoc {
	doc := reportDoc{
		RunID:      r.RunID.String(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Config:     r.Config,
		Countries:  make([]countryDoc, 0, len(r.Countries)),
	}
	for i := range r.Countries {
		doc.Countries = append(doc.Countries, countryDocument(&r.Countries[i]))
	}
	return doc
}

func countryDocument(c *CountryResult) countryDoc {
	d := countryDoc{
		Country:    c.Country,
		OK:         c.OK(),
		DurationMS: c.Duration.Milliseconds(),
		Lambda:     finite(c.Lambda),
		Trimmed:    c.Trimmed,
		Breaks:     c.Breaks,
	}
	if c.Err != nil {
		d.Error = c.Err.Error()
	}
	if c.Growth != nil {
		d.GrowthStart = c.Growth.Start.Format(c.Growth.Frequency)
		d.GrowthObs = c.Growth.Len()
	}

	if s := c.Selected; s != nil {
		sel := &selectionDoc{
			Order:           s.Order.String(),
			RMSE:            finite(s.RMSE),
			MAE:             finite(s.MAE),
			ModelsEvaluated: s.ModelsEvaluated,
			Viable:          s.Viable,
		}
		if s.Best != nil {
			sel.FailedOrigins = s.Best.FailedOrigins
			for _, v := range s.Best.HorizonRMSE {
				sel.HorizonRMSE = append(sel.HorizonRMSE, finite(v))
			}
		}
		d.Selection = sel
	}

	if f := c.Forecast; f != nil {
		freq := timeseries.DefaultFrequency
		if c.Growth != nil && c.Growth.Frequency > 0 {
			freq = c.Growth.Frequency
		}
		for i, p := range f.Periods {
			d.Forecast = append(d.Forecast, forecastRow{
				Period:      p.Format(freq),
				Growth:      at(f.Growth, i),
				GrowthLower: at(f.GrowthLower, i),
				GrowthUpper: at(f.GrowthUpper, i),
				Level:       at(f.Levels, i),
			})
		}
	}

	if a := c.Accuracy; a != nil {
		d.Accuracy = map[string]any{
			"mae":   finite(a.MAE),
			"rmse":  finite(a.RMSE),
			"mape":  finite(a.MAPE),
			"smape": finite(a.SMAPE),
			"n":     a.N,
		}
	}

	if diag := c.Diagnostics; diag != nil {
		dd := &diagDoc{DurbinWatson: finite(diag.DurbinWatson)}
		if diag.KPSS != nil {
			dd.KPSSStatistic = finite(diag.KPSS.Statistic)
			dd.KPSSPValue = finite(diag.KPSS.PValue)
		}
		if diag.LjungBox != nil {
			dd.LjungBoxStatistic = finite(diag.LjungBox.Statistic)
			dd.LjungBoxPValue = finite(diag.LjungBox.PValue)
		}
		d.Diagnostics = dd
	}
	return d
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.document()); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to filename.
func (r *Report) SaveJSON(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.WriteJSON(f)
}

// ForecastSeries returns the level forecast of every successful country,
// named by country id.
func (r *Report) ForecastSeries() []*timeseries.Series {
	var out []*timeseries.Series
	for _, c := range r.Countries {
		if !c.OK() || len(c.Forecast.Periods) == 0 {
			continue
		}
		freq := timeseries.DefaultFrequency
		if c.Growth != nil && c.Growth.Frequency > 0 {
			freq = c.Growth.Frequency
		}
		out = append(out, &timeseries.Series{
			Values:    c.Forecast.Levels,
			Start:     c.Forecast.Periods[0],
			Frequency: freq,
			Name:      c.Country,
		})
	}
	return out
}

// WriteForecastsCSV writes the level forecasts as series,period,value rows.
func (r *Report) WriteForecastsCSV(w io.Writer) error {
	return timeseries.WriteSeriesCSV(w, r.ForecastSeries()...)
}
