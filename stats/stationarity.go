package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/gdpforecast/timeseries"
)

var nan = math.NaN()

// Regression selects the deterministic terms of a stationarity test.
type Regression string

const (
	// RegressionConstant tests around a constant level.
	RegressionConstant Regression = "c"
	// RegressionTrend tests around a linear trend.
	RegressionTrend Regression = "ct"
)

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test (constant, no trend).
// The null hypothesis is a unit root; p < 0.05 rejects it.
// maxLag <= 0 selects floor((n-1)^(1/3)) lagged differences.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff.Values[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	coeffs, se, ok := olsRegression(x, y)
	if !ok || se[1] == 0 {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test.
// The null hypothesis is stationarity; p < 0.05 rejects it.
// nlags <= 0 selects ceil(12*(n/100)^(1/4)) Newey-West lags.
func KPSS(series *timeseries.Series, regression Regression, nlags int) *KPSSResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	nlags = min(nlags, n-1)

	residuals := make([]float64, n)
	if regression == RegressionTrend {
		a, b := linearTrend(series.Values)
		for i, v := range series.Values {
			residuals[i] = v - a - b*float64(i)
		}
	} else {
		mean := series.Mean()
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	// Long-run variance with Bartlett weights.
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		weight := 1 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov / float64(n)
	}
	if s2 <= 0 {
		return nil
	}

	eta, cum := 0.0, 0.0
	for _, r := range residuals {
		cum += r
		eta += cum * cum
	}
	statistic := eta / (float64(n) * float64(n) * s2)

	crit, pvals := kpssTable(regression)
	pValue := interpolatePValue(statistic, crit, pvals)

	return &KPSSResult{
		Statistic: statistic,
		PValue:    pValue,
		Lags:      nlags,
		CriticalVals: map[string]float64{
			"10%":  crit[0],
			"5%":   crit[1],
			"2.5%": crit[2],
			"1%":   crit[3],
		},
		IsStationary: pValue >= 0.05,
	}
}

func kpssTable(regression Regression) (crit, pvals []float64) {
	pvals = []float64{0.10, 0.05, 0.025, 0.01}
	if regression == RegressionTrend {
		return []float64{0.119, 0.146, 0.176, 0.216}, pvals
	}
	return []float64{0.347, 0.463, 0.574, 0.739}, pvals
}

// interpolatePValue linearly interpolates p between tabulated critical
// values, clamping at the table ends.
func interpolatePValue(statistic float64, crit, pvals []float64) float64 {
	if statistic <= crit[0] {
		return pvals[0]
	}
	last := len(crit) - 1
	if statistic >= crit[last] {
		return pvals[last]
	}
	for i := 1; i <= last; i++ {
		if statistic <= crit[i] {
			w := (statistic - crit[i-1]) / (crit[i] - crit[i-1])
			return pvals[i-1] + w*(pvals[i]-pvals[i-1])
		}
	}
	return pvals[last]
}

func linearTrend(values []float64) (a, b float64) {
	var sumT, sumY, sumTY, sumT2 float64
	for i, v := range values {
		t := float64(i)
		sumT += t
		sumY += v
		sumTY += t * v
		sumT2 += t * t
	}
	n := float64(len(values))
	b = (n*sumTY - sumT*sumY) / (n*sumT2 - sumT*sumT)
	a = (sumY - b*sumT) / n
	return a, b
}

// olsRegression solves y = X*beta by least squares and returns the
// coefficients with their standard errors.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64, ok bool) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, false
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, false
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, nil, false
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	s2 := mat.Dot(&resid, &resid) / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}
	return coeffs, stdErrors, true
}

// mackinnonPValue approximates the ADF p-value for a constant-only
// regression with MacKinnon's (1994) response surface.
func mackinnonPValue(tau float64) float64 {
	const (
		tauMax  = 2.74
		tauMin  = -18.83
		tauStar = -1.61
	)

	switch {
	case tau > tauMax:
		return 1
	case tau < tauMin:
		return 0
	}

	var z float64
	if tau <= tauStar {
		z = 2.1659 + 1.4412*tau + 0.038269*tau*tau
	} else {
		z = 1.7339 + 0.93202*tau - 0.12745*tau*tau - 0.010368*tau*tau*tau
	}
	return distuv.UnitNormal.CDF(z)
}
