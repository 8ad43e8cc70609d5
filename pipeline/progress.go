package pipeline

import "sync/atomic"

// Progress tracks a running batch. It is safe to read while Run is in
// flight.
type Progress struct {
	total      atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	gridPoints atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	GridPoints int64 `json:"grid_points"`
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Total:      p.total.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		GridPoints: p.gridPoints.Load(),
	}
}

// Remaining returns the number of countries not yet finished.
func (s ProgressSnapshot) Remaining() int64 {
	return s.Total - s.Completed - s.Failed
}
