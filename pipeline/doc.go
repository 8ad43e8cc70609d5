// Package pipeline runs the per-country forecasting chain over a panel.
//
// For each country the levels are Box-Cox transformed, turned into
// percentage growth rates, trimmed to the regime after the last
// structural break, searched for the best SARIMA order by
// cross-validation and forecast. The growth forecasts are compounded back
// onto the last transformed level and mapped to GDP levels with the
// country's own lambda.
//
// # Basic Usage
//
//	runner := pipeline.NewRunner(cfg, logger, metrics.New())
//	report, err := runner.Run(ctx, panel, actuals)
//	if err != nil {
//	    // ctx ended; report holds what finished
//	}
//	for _, c := range report.Failed() {
//	    logger.Warn("no forecast", zap.String("country", c.Country), zap.Error(c.Err))
//	}
//
// Countries are independent. Run.Workers bounds how many are processed at
// once, and a failing country never affects the others.
package pipeline
