// Package gdpforecast forecasts quarterly GDP per country with seasonal ARIMA
// models chosen by rolling-origin cross-validation.
//
// Each country's GDP levels go through a fixed chain:
//
//   - Box-Cox transform with a per-country lambda (Guerrero's method)
//   - percentage growth rates of the transformed levels
//   - trimming to the regime after the last structural break
//   - exhaustive (p,d,q)(P,D,Q)[4] grid search scored by cross-validated RMSE
//   - a four-quarter growth forecast compounded onto the last level and
//     mapped back with the inverse Box-Cox transform
//
// # Quick Start
//
//	cfg := config.Default()
//	panel, _ := timeseries.LoadPanelCSV("gdp.csv", nil)
//	report, err := pipeline.NewRunner(cfg, logger, metrics.New()).Run(ctx, panel, nil)
//
// Or from the command line:
//
//	gdpforecast run --input gdp.csv --report report.json --forecasts forecasts.csv
//
// # Packages
//
//   - timeseries: series, periods, panels and CSV/XLSX loading
//   - transform: Box-Cox, growth rates and break trimming
//   - sarima: seasonal ARIMA fitting and prediction
//   - crossval: rolling-origin cross-validation of one order
//   - autoarima: grid search over orders
//   - forecast: final fit and reconstruction of GDP levels
//   - accuracy: MAE, RMSE, MAPE and sMAPE against realized values
//   - stats: ACF, PACF, ADF, KPSS and Ljung-Box
//   - pipeline: per-country batch runner and reports
//   - config, logging, metrics: run configuration, zap loggers, Prometheus
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Guerrero, V. M. (1993). Time-series analysis supported by power transformations
//   - Andrews, D. W. K. (1993). Tests for parameter instability and structural change with unknown change point
package gdpforecast
