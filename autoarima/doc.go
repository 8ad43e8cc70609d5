// Package autoarima implements exhaustive seasonal ARIMA order selection by
// rolling-origin cross-validation.
//
// Every (p,d,q)(P,D,Q)[m] combination within the configured bounds is scored
// with crossval.Evaluate and the order with the lowest RMSE wins. The grid is
// enumerated lexicographically on (p, d, q, P, D, Q) and ties go to the
// first order, so repeated runs always select the same model.
//
// # Basic Usage
//
//	config := autoarima.DefaultConfig() // p,d,q <= 1, P,D,Q <= 2, m = 4
//	result, err := autoarima.SelectBestModel(ctx, growth, config)
//	if errors.Is(err, autoarima.ErrNoViableModel) {
//	    // every candidate failed cross-validation
//	}
//
//	fmt.Printf("Best model: SARIMA%s RMSE=%.4f (%d of %d viable)\n",
//	    result.Order, result.RMSE, result.Viable, result.ModelsEvaluated)
//
// # Cost and Parallelism
//
// The reference grid has 3^3 * 3^3 = 729 points, each fit once per
// cross-validation origin. Candidates are independent:
//
//	config.Workers = runtime.NumCPU()
//	config.Timeout = 2 * time.Minute
//	config.OnEvaluate = func(e autoarima.Evaluation) {
//	    log.Printf("%d/%d %s", e.Index+1, e.Total, e.Result.Order)
//	}
//
// Results are collected by grid position, so the selection is identical to a
// sequential run.
package autoarima
