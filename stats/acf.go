package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/gdpforecast/timeseries"
)

// ACF calculates the sample autocorrelation function for lags 0 to maxLag.
// It returns nil for a constant or empty series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	return acf(series.Values, maxLag)
}

func acf(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(values, nil)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	if variance == 0 {
		return nil
	}

	out := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		out[k] = sum / variance
	}
	return out
}

// PACF calculates the partial autocorrelation function with the
// Durbin-Levinson recursion. Index 0 is always 1.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	r := ACF(series, maxLag)
	if r == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	prev := []float64{r[1]}
	pacf[1] = r[1]

	for k := 2; k <= maxLag; k++ {
		num, den := r[k], 1.0
		for j := 1; j < k; j++ {
			num -= prev[j-1] * r[k-j]
			den -= prev[j-1] * r[j]
		}
		if den == 0 {
			break
		}

		phiKK := num / den
		pacf[k] = phiKK

		next := make([]float64, k)
		for j := 1; j < k; j++ {
			next[j-1] = prev[j-1] - phiKK*prev[k-j-1]
		}
		next[k-1] = phiKK
		prev = next
	}

	return pacf
}

// YuleWalker estimates AR(order) coefficients by solving the Yule-Walker
// equations R*phi = r. It returns nil when the autocorrelation matrix is
// singular or the series is constant.
func YuleWalker(values []float64, order int) []float64 {
	if order < 1 {
		return nil
	}
	r := acf(values, order)
	if len(r) != order+1 {
		return nil
	}

	toeplitz := mat.NewSymDense(order, nil)
	for i := 0; i < order; i++ {
		for j := i; j < order; j++ {
			toeplitz.SetSym(i, j, r[j-i])
		}
	}
	rhs := mat.NewVecDense(order, r[1:])

	var phi mat.VecDense
	if err := phi.SolveVec(toeplitz, rhs); err != nil {
		return nil
	}

	out := make([]float64, order)
	for i := range out {
		out[i] = phi.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil
		}
	}
	return out
}

// ConfidenceBound returns the approximate 95% significance bound
// 1.96/sqrt(n) for sample autocorrelations.
func ConfidenceBound(n int) float64 {
	if n < 1 {
		return math.Inf(1)
	}
	return 1.96 / math.Sqrt(float64(n))
}

// SignificantLags returns the lags (excluding 0) whose absolute value
// exceeds bound.
func SignificantLags(values []float64, bound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > bound {
			significant = append(significant, i)
		}
	}
	return significant
}
