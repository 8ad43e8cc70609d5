// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultFrequency is the number of periods per year for quarterly data.
const DefaultFrequency = 4

// Series is a regularly spaced time series. The period of Values[i] is
// Start advanced by i steps at the given Frequency.
type Series struct {
	Values    []float64
	Start     Period
	Frequency int
	Name      string
}

// New creates a quarterly series from values with an unset start period.
func New(values []float64) *Series {
	return &Series{
		Values:    values,
		Frequency: DefaultFrequency,
	}
}

// NewWithStart creates a series anchored at start.
func NewWithStart(values []float64, start Period, frequency int) (*Series, error) {
	if frequency < 1 {
		return nil, errors.New("frequency must be at least 1")
	}
	if start.Sub < 1 || start.Sub > frequency {
		return nil, errors.New("start sub-period out of range for frequency")
	}
	return &Series{
		Values:    values,
		Start:     start,
		Frequency: frequency,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

func (s *Series) freq() int {
	if s.Frequency < 1 {
		return DefaultFrequency
	}
	return s.Frequency
}

// PeriodAt returns the period of the i-th observation.
func (s *Series) PeriodAt(i int) Period {
	return s.Start.Add(i, s.freq())
}

// End returns the period of the last observation.
func (s *Series) End() Period {
	return s.PeriodAt(len(s.Values) - 1)
}

// Periods returns the period labels of every observation.
func (s *Series) Periods() []Period {
	out := make([]Period, len(s.Values))
	for i := range out {
		out[i] = s.PeriodAt(i)
	}
	return out
}

// Last returns the final observation, or NaN for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_seasonal_diff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Values: []float64{}, Frequency: s.freq()}
	}

	result := make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		result[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	return &Series{
		Values:    result,
		Start:     s.PeriodAt(lag),
		Frequency: s.freq(),
		Name:      s.Name + suffix,
	}
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Start: s.PeriodAt(start), Frequency: s.freq(), Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	return &Series{
		Values:    values,
		Start:     s.PeriodAt(start),
		Frequency: s.freq(),
		Name:      s.Name,
	}
}

// Tail returns the last n observations.
func (s *Series) Tail(n int) *Series {
	return s.Slice(len(s.Values)-n, len(s.Values))
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	return &Series{
		Values:    values,
		Start:     s.Start,
		Frequency: s.Frequency,
		Name:      s.Name,
	}
}

// WithValues returns a series sharing s's calendar but holding values,
// anchored so that the last value lines up with s.End().
func (s *Series) WithValues(values []float64, name string) *Series {
	offset := len(s.Values) - len(values)
	return &Series{
		Values:    values,
		Start:     s.PeriodAt(offset),
		Frequency: s.freq(),
		Name:      name,
	}
}
