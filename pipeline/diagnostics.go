package pipeline

import (
	"github.com/sartorproj/gdpforecast/forecast"
	"github.com/sartorproj/gdpforecast/stats"
	"github.com/sartorproj/gdpforecast/timeseries"
)

// Diagnostics are informational checks on a country's growth series and
// final model. They never fail a country.
type Diagnostics struct {
	// KPSS tests level stationarity of the trimmed growth series.
	KPSS *stats.KPSSResult
	// LjungBox tests the final model residuals for leftover autocorrelation.
	LjungBox     *stats.LjungBoxResult
	DurbinWatson float64
}

func diagnose(growth *timeseries.Series, fc *forecast.Result) *Diagnostics {
	d := &Diagnostics{
		KPSS:         stats.KPSS(growth, stats.RegressionConstant, 0),
		DurbinWatson: nan,
	}
	if fc == nil || fc.Model == nil {
		return d
	}
	if summary := fc.Model.Summary(); summary != nil {
		d.LjungBox = summary.LjungBox
	}
	d.DurbinWatson = stats.DurbinWatson(fc.Model.Residuals())
	return d
}
