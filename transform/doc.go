// Package transform provides the numeric transforms that turn a GDP level
// series into a stationary growth-rate series and back.
//
// The forward chain is
//
//	lambda, _ := transform.BoxCoxLambda(levels, 4, transform.DefaultLambdaLower, transform.DefaultLambdaUpper)
//	bc, _ := transform.BoxCox(levels, lambda)
//	growth, _ := transform.PercentageChange(bc)
//	growth, breaks := transform.BreakpointTrim(growth, transform.DefaultBreakpointOptions())
//
// Forecasts are mapped back by compounding growth onto the last Box-Cox
// level and applying InvBoxCox with the same lambda.
//
// Every failure that would otherwise produce NaN is reported as
// ErrDegenerateSeries.
package transform
