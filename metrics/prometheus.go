// Package metrics exposes forecasting progress as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Country outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder records batch progress on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	countries   *prometheus.CounterVec
	gridPoints  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	selected    *prometheus.GaugeVec
	duration    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		countries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdpforecast_countries_total",
				Help: "Countries processed, by outcome",
			},
			[]string{"status"},
		),
		gridPoints: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdpforecast_grid_points_evaluated_total",
				Help: "Model orders scored by cross-validation",
			},
			[]string{"viable"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdpforecast_errors_total",
				Help: "Per-country failures, by kind",
			},
			[]string{"type"},
		),
		selected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gdpforecast_selected_rmse",
				Help: "Cross-validation RMSE of the selected model",
			},
			[]string{"country"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gdpforecast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordCountry records a finished country.
func (r *Recorder) RecordCountry(status string) {
	r.countries.WithLabelValues(status).Inc()
}

// RecordGridPoint records one scored candidate order.
func (r *Recorder) RecordGridPoint(viable bool) {
	label := "false"
	if viable {
		label = "true"
	}
	r.gridPoints.WithLabelValues(label).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSelection records the RMSE of a country's selected model.
func (r *Recorder) RecordSelection(country string, rmse float64) {
	r.selected.WithLabelValues(country).Set(rmse)
}

// RecordDuration records stage latency in seconds.
func (r *Recorder) RecordDuration(stage string, seconds float64) {
	r.duration.WithLabelValues(stage).Observe(seconds)
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
