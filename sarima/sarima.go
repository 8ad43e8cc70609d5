package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/gdpforecast/stats"
	"github.com/sartorproj/gdpforecast/timeseries"
)

var (
	// ErrFitFailed reports that a model could not be estimated on a series:
	// too few observations, non-finite data or a non-finite solution.
	ErrFitFailed = errors.New("model fit failed")

	// ErrNotFitted is returned when predicting with an unfitted model.
	ErrNotFitted = errors.New("model must be fitted before prediction")
)

// Observations required beyond the lags consumed by the order.
const minResidualObs = 10

// Lags used for the residual Ljung-Box test in Summary.
const summaryLags = 8

// Coefficients are kept strictly inside the unit interval.
const coeffBound = 0.99

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (4 for quarterly data)
}

// String formats the order as (p,d,q)(P,D,Q)[m].
func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// Tuple returns (p, d, q, P, D, Q).
func (o Order) Tuple() [6]int {
	return [6]int{o.P, o.D, o.Q, o.SP, o.SD, o.SQ}
}

// NumCoeffs is the number of estimated ARMA coefficients.
func (o Order) NumCoeffs() int {
	return o.P + o.Q + o.SP + o.SQ
}

// Seasonal reports whether any seasonal component is present.
func (o Order) Seasonal() bool {
	return o.SP > 0 || o.SD > 0 || o.SQ > 0
}

// Validate checks that the order is usable.
func (o Order) Validate() error {
	for _, v := range o.Tuple() {
		if v < 0 {
			return fmt.Errorf("negative order %s", o)
		}
	}
	if o.Seasonal() && o.M < 2 {
		return fmt.Errorf("seasonal order %s needs a period of at least 2", o)
	}
	return nil
}

// MinObservations returns the shortest series Fit accepts for this order.
func (o Order) MinObservations() int {
	n := o.P + o.D + o.Q + minResidualObs
	if o.Seasonal() {
		n += (o.SP + o.SD + o.SQ) * o.M
	}
	return n
}

// Model represents a SARIMA model estimated by conditional sum of squares.
// The seasonal and non-seasonal lag polynomials enter additively.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64

	fitted bool
	nObs   int
	// stages[0] is the input, each following stage one more difference.
	stages     [][]float64
	residuals  []float64
	fittedVals []float64
}

// New creates a new SARIMA model with the specified order.
func New(order Order) *Model {
	return &Model{
		Order:     order,
		ARCoeffs:  make([]float64, order.P),
		MACoeffs:  make([]float64, order.Q),
		SARCoeffs: make([]float64, order.SP),
		SMACoeffs: make([]float64, order.SQ),
	}
}

// Fit fits the SARIMA model to the given time series data. Every failure is
// wrapped in ErrFitFailed.
func (m *Model) Fit(series *timeseries.Series) error {
	if err := m.Order.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrFitFailed, err)
	}

	values := series.Values
	if need := m.Order.MinObservations(); len(values) < need {
		return fmt.Errorf("%w: %s needs %d observations, got %d", ErrFitFailed, m.Order, need, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrFitFailed, i)
		}
	}

	m.fitted = false
	m.nObs = len(values)
	m.stages = differenceStages(values, m.Order)

	if err := m.fitCSS(m.stages[len(m.stages)-1]); err != nil {
		return err
	}

	m.calculateIC()
	m.fitted = true
	return nil
}

// differenceStages applies d lag-1 differences followed by D seasonal
// differences, keeping every intermediate series for integration.
func differenceStages(values []float64, order Order) [][]float64 {
	stages := make([][]float64, 0, 1+order.D+order.SD)
	stages = append(stages, append([]float64(nil), values...))

	for i := 0; i < order.D; i++ {
		stages = append(stages, difference(stages[len(stages)-1], 1))
	}
	for i := 0; i < order.SD; i++ {
		stages = append(stages, difference(stages[len(stages)-1], order.M))
	}
	return stages
}

func difference(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := lag; i < len(x); i++ {
		out[i-lag] = x[i] - x[i-lag]
	}
	return out
}

// stageLag returns the differencing lag that produced stage s (s >= 1).
func (m *Model) stageLag(s int) int {
	if s <= m.Order.D {
		return 1
	}
	return m.Order.M
}

// fitCSS estimates the coefficients by minimizing the conditional sum of
// squares with Nelder-Mead. Coefficients are optimized in an unbounded
// space and mapped into (-coeffBound, coeffBound) with tanh.
func (m *Model) fitCSS(y []float64) error {
	n := len(y)
	k := m.Order.NumCoeffs()
	if n < k+2 {
		return fmt.Errorf("%w: %d observations after differencing", ErrFitFailed, n)
	}

	m.Intercept = stat.Mean(y, nil)
	m.initCoeffs(y)

	startIdx := max(m.Order.P, m.Order.Q)
	if m.Order.Seasonal() {
		startIdx = max(startIdx, m.Order.SP*m.Order.M, m.Order.SQ*m.Order.M)
	}
	if startIdx >= n-minResidualObs/2 {
		startIdx = 0
	}

	residuals := make([]float64, n)
	if k > 0 {
		objective := func(u []float64) float64 {
			m.setCoeffs(u)
			sse := m.filter(y, residuals, nil, startIdx)
			if math.IsNaN(sse) {
				return math.Inf(1)
			}
			return sse
		}

		settings := &optimize.Settings{
			FuncEvaluations: 400 * (k + 1),
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 50,
			},
		}

		result, err := optimize.Minimize(optimize.Problem{Func: objective}, m.packCoeffs(), settings, &optimize.NelderMead{})
		if result == nil {
			return fmt.Errorf("%w: %v", ErrFitFailed, err)
		}
		m.setCoeffs(result.X)
	}

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	m.filter(y, m.residuals, m.fittedVals, 0)

	sse, count := 0.0, 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}

	numParams := k + 1
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else {
		m.Variance = sse / float64(count)
	}

	if math.IsNaN(m.Variance) || math.IsInf(m.Variance, 0) {
		return fmt.Errorf("%w: non-finite residual variance", ErrFitFailed)
	}
	return nil
}

// initCoeffs sets starting values: Yule-Walker for AR, half the seasonal
// autocorrelation for SAR and a small positive value for MA terms.
func (m *Model) initCoeffs(y []float64) {
	if m.Order.P > 0 {
		if phi := stats.YuleWalker(y, m.Order.P); phi != nil {
			for i, v := range phi {
				m.ARCoeffs[i] = clamp(v, -0.9, 0.9)
			}
		}
	}

	if m.Order.SP > 0 {
		acf := stats.ACF(timeseries.New(y), m.Order.SP*m.Order.M)
		for i := 0; i < m.Order.SP; i++ {
			idx := (i + 1) * m.Order.M
			if idx < len(acf) {
				m.SARCoeffs[i] = acf[idx] * 0.5
			}
		}
	}

	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}
}

// packCoeffs maps the current coefficients into the optimizer's space.
func (m *Model) packCoeffs() []float64 {
	u := make([]float64, 0, m.Order.NumCoeffs())
	for _, group := range [][]float64{m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs} {
		for _, c := range group {
			u = append(u, math.Atanh(clamp(c, -0.95, 0.95)/coeffBound))
		}
	}
	return u
}

func (m *Model) setCoeffs(u []float64) {
	i := 0
	for _, group := range [][]float64{m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs} {
		for j := range group {
			group[j] = coeffBound * math.Tanh(u[i])
			i++
		}
	}
}

// filter runs the ARMA recursion over y, writing residuals (and optionally
// one-step predictions) and returning the sum of squared residuals from
// index from onwards.
func (m *Model) filter(y, residuals, fitted []float64, from int) float64 {
	period := m.Order.M
	sse := 0.0

	for t := range y {
		pred := m.Intercept

		for i, c := range m.ARCoeffs {
			if lag := i + 1; t-lag >= 0 {
				pred += c * (y[t-lag] - m.Intercept)
			}
		}
		for i, c := range m.SARCoeffs {
			if lag := (i + 1) * period; t-lag >= 0 {
				pred += c * (y[t-lag] - m.Intercept)
			}
		}
		for i, c := range m.MACoeffs {
			if lag := i + 1; t-lag >= 0 {
				pred += c * residuals[t-lag]
			}
		}
		for i, c := range m.SMACoeffs {
			if lag := (i + 1) * period; t-lag >= 0 {
				pred += c * residuals[t-lag]
			}
		}

		residuals[t] = y[t] - pred
		if fitted != nil {
			fitted[t] = pred
		}
		if t >= from {
			sse += residuals[t] * residuals[t]
		}
	}
	return sse
}

// calculateIC calculates AIC, AICc, and BIC.
func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.NumCoeffs() + 1

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(1)
	}

	m.AIC = -2*m.LogLik + 2*float64(k)

	kf := float64(k)
	nf := float64(n)
	if nf-kf-1 > 0 {
		m.AICc = m.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.AICc = math.Inf(1)
	}

	m.BIC = -2*m.LogLik + kf*math.Log(nf)
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals at the
// given confidence level. A non-finite forecast is reported as ErrFitFailed.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	period := m.Order.M
	y := m.stages[len(m.stages)-1]
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept

		for i, c := range m.ARCoeffs {
			if lag := i + 1; t-lag >= 0 {
				pred += c * (extY[t-lag] - m.Intercept)
			}
		}
		for i, c := range m.SARCoeffs {
			if lag := (i + 1) * period; t-lag >= 0 {
				pred += c * (extY[t-lag] - m.Intercept)
			}
		}
		// Future shocks are zero, only observed residuals contribute.
		for i, c := range m.MACoeffs {
			if lag := i + 1; t-lag >= 0 && t-lag < n {
				pred += c * m.residuals[t-lag]
			}
		}
		for i, c := range m.SMACoeffs {
			if lag := (i + 1) * period; t-lag >= 0 && t-lag < n {
				pred += c * m.residuals[t-lag]
			}
		}

		extY[t] = pred
	}

	forecasts = m.integrate(extY[n:])
	for h, f := range forecasts {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil, nil, fmt.Errorf("%w: non-finite forecast at step %d", ErrFitFailed, h+1)
		}
	}

	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)
	lower = make([]float64, steps)
	upper = make([]float64, steps)

	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.Variance)

		// Uncertainty accumulates through each integration.
		if m.Order.D > 0 {
			se *= math.Pow(float64(h+1), float64(m.Order.D)/2)
		}
		if m.Order.SD > 0 && period > 0 {
			se *= math.Pow(float64(h/period+1), float64(m.Order.SD)/2)
		}

		lower[h] = forecasts[h] - z*se
		upper[h] = forecasts[h] + z*se
	}

	return forecasts, lower, upper, nil
}

// integrate undoes the differencing stages in reverse order, using
// y[n+h] = z[n+h] + y[n+h-lag] with observed values where available.
func (m *Model) integrate(diffForecasts []float64) []float64 {
	result := append([]float64(nil), diffForecasts...)

	for s := len(m.stages) - 1; s >= 1; s-- {
		lag := m.stageLag(s)
		prev := m.stages[s-1]
		np := len(prev)

		level := make([]float64, len(result))
		for h := range result {
			if h-lag >= 0 {
				level[h] = result[h] + level[h-lag]
			} else {
				level[h] = result[h] + prev[np+h-lag]
			}
		}
		result = level
	}

	return result
}

// Residuals returns the model residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// FittedValues returns the one-step predictions on the differenced scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.fittedVals...)
}

// Summary represents a model summary.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model, including a Ljung-Box
// test of the residuals. It returns nil for an unfitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	lb := stats.LjungBox(timeseries.New(m.residuals), summaryLags, m.Order.NumCoeffs())

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
		SARCoeffs: append([]float64(nil), m.SARCoeffs...),
		SMACoeffs: append([]float64(nil), m.SMACoeffs...),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.nObs,
		LjungBox:  lb,
	}
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
