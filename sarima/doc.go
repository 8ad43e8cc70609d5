// Package sarima implements Seasonal ARIMA (SARIMA) models for quarterly
// growth-rate series.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model includes:
//   - Non-seasonal components: AR(p), I(d), MA(q)
//   - Seasonal components: SAR(P), SI(D), SMA(Q) at seasonal period m
//
// Coefficients are estimated by conditional sum of squares around the mean
// of the differenced series. Forecasts are integrated back through every
// differencing stage.
//
// # Basic Usage
//
//	// SARIMA(1,0,0)(1,1,0)[4]
//	model := sarima.New(sarima.Order{P: 1, SP: 1, SD: 1, M: 4})
//
//	if err := model.Fit(series); err != nil {
//	    // errors.Is(err, sarima.ErrFitFailed)
//	}
//
//	forecasts, _ := model.Predict(4)
//	forecasts, lower, upper, _ := model.PredictWithInterval(4, 0.95)
//
// # Diagnostics
//
//	summary := model.Summary()
//	fmt.Printf("AICc: %.2f, Ljung-Box p: %.3f\n", summary.AICc, summary.LjungBox.PValue)
package sarima
