package timeseries

import (
	"errors"
)

// BuildSeries anchors a bare value list on the calendar when only the
// canonical end year of the data set is known (upstream trimming drops the
// period labels).
//
// The start year is canonicalEndYear - ceil(len/frequency) and the start
// sub-period is len%frequency + 1, so for quarterly data a length that is an
// exact multiple of four starts in Q1 and remainders 1, 2, 3 start in Q2, Q3
// and Q4. The two branches do not end on the same period: a multiple of the
// frequency ends in the last sub-period of canonicalEndYear-1, while the
// other cases end earlier in that year. Date axes downstream rely on this
// exact placement, so it is kept as is.
func BuildSeries(values []float64, canonicalEndYear, frequency int) (*Series, error) {
	if frequency < 1 {
		return nil, errors.New("frequency must be at least 1")
	}
	n := len(values)
	if n == 0 {
		return nil, errors.New("cannot build a series from no values")
	}

	years := (n + frequency - 1) / frequency
	start := Period{
		Year: canonicalEndYear - years,
		Sub:  n%frequency + 1,
	}

	return &Series{
		Values:    values,
		Start:     start,
		Frequency: frequency,
	}, nil
}
