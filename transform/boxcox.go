package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateSeries is returned when a series cannot be transformed,
// e.g. non-positive values under Box-Cox or a zero growth denominator.
var ErrDegenerateSeries = errors.New("degenerate series")

// Default search interval for the Box-Cox parameter.
const (
	DefaultLambdaLower = -1.0
	DefaultLambdaUpper = 2.0
)

const goldenTolerance = 1e-5

// BoxCoxLambda estimates the variance-stabilizing Box-Cox parameter using
// Guerrero's method. The tail of the series is split into consecutive blocks
// of max(2, period) observations and lambda is chosen on [lower, upper] to
// minimize the coefficient of variation of sd_i / mean_i^(1-lambda).
func BoxCoxLambda(values []float64, period int, lower, upper float64) (float64, error) {
	if lower >= upper {
		return 0, fmt.Errorf("invalid lambda interval [%g, %g]", lower, upper)
	}
	if err := requirePositive(values); err != nil {
		return 0, err
	}

	blockLen := max(2, period)
	nBlocks := len(values) / blockLen
	if nBlocks < 2 {
		return 0, fmt.Errorf("%w: need at least %d observations, got %d",
			ErrDegenerateSeries, 2*blockLen, len(values))
	}

	offset := len(values) - nBlocks*blockLen
	means := make([]float64, nBlocks)
	sds := make([]float64, nBlocks)
	for i := 0; i < nBlocks; i++ {
		block := values[offset+i*blockLen : offset+(i+1)*blockLen]
		means[i], sds[i] = stat.MeanStdDev(block, nil)
	}

	ratio := make([]float64, nBlocks)
	objective := func(lambda float64) float64 {
		for i := range ratio {
			ratio[i] = sds[i] / math.Pow(means[i], 1-lambda)
		}
		mean, sd := stat.MeanStdDev(ratio, nil)
		return sd / mean
	}

	lambda := goldenSection(objective, lower, upper, goldenTolerance)
	if v := objective(lambda); math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: lambda objective undefined", ErrDegenerateSeries)
	}
	return lambda, nil
}

// goldenSection minimizes a unimodal f on [a, b]. NaN evaluations are
// treated as +Inf.
func goldenSection(f func(float64) float64, a, b, tol float64) float64 {
	invPhi := (math.Sqrt(5) - 1) / 2

	eval := func(x float64) float64 {
		v := f(x)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := eval(c), eval(d)

	for b-a > tol {
		if fc <= fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = eval(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = eval(d)
		}
	}

	return (a + b) / 2
}

// BoxCox applies the Box-Cox transform: ln(y) when lambda is 0,
// (y^lambda - 1) / lambda otherwise.
func BoxCox(values []float64, lambda float64) ([]float64, error) {
	if err := requirePositive(values); err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	if lambda == 0 {
		for i, v := range values {
			out[i] = math.Log(v)
		}
		return out, nil
	}

	for i, v := range values {
		out[i] = (math.Pow(v, lambda) - 1) / lambda
	}
	return out, nil
}

// InvBoxCox reverses BoxCox: exp(y) when lambda is 0,
// (lambda*y + 1)^(1/lambda) otherwise.
func InvBoxCox(values []float64, lambda float64) ([]float64, error) {
	out := make([]float64, len(values))
	if lambda == 0 {
		for i, v := range values {
			out[i] = math.Exp(v)
		}
		return checkFinite(out)
	}

	for i, v := range values {
		base := lambda*v + 1
		if base <= 0 {
			return nil, fmt.Errorf("%w: inverse Box-Cox undefined at index %d (lambda=%g, value=%g)",
				ErrDegenerateSeries, i, lambda, v)
		}
		out[i] = math.Pow(base, 1/lambda)
	}
	return checkFinite(out)
}

func requirePositive(values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: empty series", ErrDegenerateSeries)
	}
	for i, v := range values {
		if !(v > 0) || math.IsInf(v, 1) {
			return fmt.Errorf("%w: non-positive or non-finite value %g at index %d",
				ErrDegenerateSeries, v, i)
		}
	}
	return nil
}

func checkFinite(values []float64) ([]float64, error) {
	if floats.HasNaN(values) {
		return nil, fmt.Errorf("%w: result contains NaN", ErrDegenerateSeries)
	}
	for i, v := range values {
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: result overflows at index %d", ErrDegenerateSeries, i)
		}
	}
	return values, nil
}
