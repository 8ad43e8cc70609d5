package transform

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BreakpointOptions controls the structural-break scan.
type BreakpointOptions struct {
	// Trim is the minimum segment length as a fraction of the scanned span.
	Trim float64
	// CriticalValue is the sup-F threshold for accepting a break.
	CriticalValue float64
	// MinShift is the minimum absolute change in mean between regimes.
	MinShift float64
}

// DefaultBreakpointOptions returns Andrews' 5% critical value for a single
// mean-shift parameter at 15% trimming.
func DefaultBreakpointOptions() BreakpointOptions {
	return BreakpointOptions{
		Trim:          0.15,
		CriticalValue: 8.85,
		MinShift:      0.25,
	}
}

func (o BreakpointOptions) withDefaults() BreakpointOptions {
	def := DefaultBreakpointOptions()
	if o.Trim <= 0 || o.Trim >= 0.5 {
		o.Trim = def.Trim
	}
	if o.CriticalValue <= 0 {
		o.CriticalValue = def.CriticalValue
	}
	if o.MinShift < 0 {
		o.MinShift = def.MinShift
	}
	return o
}

// BreakpointTrim drops everything up to and including the most recent
// structural break in the mean of values.
//
// Each scan fits a single changepoint by maximizing the Chow F statistic over
// the admissible split points. When a break is accepted the scan is repeated
// on the remaining suffix, so the returned slice starts right after the last
// detected break. breaks holds the index (into values) of the final
// observation of each abandoned regime. Without a break the result is a copy
// of values.
func BreakpointTrim(values []float64, opts BreakpointOptions) (trimmed []float64, breaks []int) {
	opts = opts.withDefaults()

	offset := 0
	for {
		k, ok := scanBreak(values[offset:], opts)
		if !ok {
			break
		}
		breaks = append(breaks, offset+k)
		offset += k + 1
	}

	trimmed = make([]float64, len(values)-offset)
	copy(trimmed, values[offset:])
	return trimmed, breaks
}

// scanBreak returns the split index k (x[:k+1] | x[k+1:]) with the largest F
// statistic, if it passes both thresholds.
func scanBreak(x []float64, opts BreakpointOptions) (int, bool) {
	n := len(x)
	h := max(2, int(math.Ceil(opts.Trim*float64(n))))
	if n < 2*h {
		return 0, false
	}

	ssrFull := ssr(x)
	bestK, bestF := -1, math.Inf(-1)
	for k := h - 1; k <= n-h-1; k++ {
		ssrSplit := ssr(x[:k+1]) + ssr(x[k+1:])

		var f float64
		switch {
		case ssrSplit > 0:
			f = (ssrFull - ssrSplit) / (ssrSplit / float64(n-2))
		case ssrFull > 0:
			f = math.Inf(1)
		}

		if f > bestF {
			bestK, bestF = k, f
		}
	}

	if bestK < 0 || bestF < opts.CriticalValue {
		return 0, false
	}

	shift := stat.Mean(x[bestK+1:], nil) - stat.Mean(x[:bestK+1], nil)
	if math.Abs(shift) < opts.MinShift {
		return 0, false
	}
	return bestK, true
}

// ssr is the residual sum of squares around the segment mean.
func ssr(x []float64) float64 {
	mean := stat.Mean(x, nil)
	sum := 0.0
	for _, v := range x {
		d := v - mean
		sum += d * d
	}
	return sum
}
