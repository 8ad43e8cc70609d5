// Package stats provides the autocorrelation tools and diagnostic tests used
// to check growth-rate series and fitted models.
//
// # Stationarity Tests
//
//	// KPSS, H0: series is stationary around a constant
//	kpss := stats.KPSS(growth, stats.RegressionConstant, 0)
//
//	// Augmented Dickey-Fuller, H0: series has a unit root
//	adf := stats.ADF(growth, 0)
//
// # Autocorrelation
//
//	acf := stats.ACF(series, 8)
//	pacf := stats.PACF(series, 8)
//	significant := stats.SignificantLags(acf, stats.ConfidenceBound(series.Len()))
//
//	// AR starting values for the seasonal ARIMA estimator
//	phi := stats.YuleWalker(series.Values, 2)
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 8, p+q+P+Q)
//	if lb.PValue > 0.05 {
//	    // residuals look like white noise
//	}
//	dw := stats.DurbinWatson(residuals.Values)
package stats
