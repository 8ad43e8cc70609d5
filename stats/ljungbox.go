package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/gdpforecast/timeseries"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box portmanteau test on residuals.
// The null hypothesis is no autocorrelation up to lag h; a p-value below
// 0.05 indicates the model left structure in the residuals.
// fitdf is the number of estimated ARMA coefficients.
func LjungBox(series *timeseries.Series, lags, fitdf int) *LjungBoxResult {
	n := series.Len()
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	r := ACF(series, lags)
	if r == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += r[k] * r[k] / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := max(lags-fitdf, 1)
	chi := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order
// autocorrelation. Values near 2 indicate none, below 2 positive and above
// 2 negative autocorrelation. It returns NaN for fewer than two residuals
// or all-zero residuals.
func DurbinWatson(residuals []float64) float64 {
	if len(residuals) < 2 {
		return nan
	}

	num, den := 0.0, 0.0
	for i, r := range residuals {
		den += r * r
		if i > 0 {
			d := r - residuals[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return nan
	}
	return num / den
}
