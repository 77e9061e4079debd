package brdf

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mrjoshuak/go-brdf/tensor"
)

// Metrics holds Prometheus collectors for BRDF loading. Queries are not
// instrumented.
type Metrics struct {
	loads      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	tableBytes *prometheus.GaugeVec
}

// NewMetrics creates the load collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// loads counts load attempts by variant and outcome
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brdf_loads_total",
			Help: "Total measured BRDF loads by variant and result",
		}, []string{"variant", "result"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brdf_load_duration_seconds",
			Help:    "Time to read a BRDF file and build its sampling tables",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"variant"}),

		tableBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brdf_table_bytes",
			Help: "Decoded table size of the most recently loaded BRDF",
		}, []string{"variant"}),
	}
}

// observe records one load attempt. It is safe on a nil receiver.
func (m *Metrics) observe(v variant, start time.Time, bytes int, err error) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(v.String(), resultLabel(err)).Inc()
	m.duration.WithLabelValues(v.String()).Observe(time.Since(start).Seconds())
	if err == nil {
		m.tableBytes.WithLabelValues(v.String()).Set(float64(bytes))
	}
}

func resultLabel(err error) string {
	var (
		ioErr      *tensor.IOError
		formatErr  *tensor.FormatError
		corruptErr *tensor.CorruptDataError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ioErr):
		return "io_error"
	case errors.As(err, &formatErr):
		return "format_error"
	case errors.As(err, &corruptErr):
		return "corrupt_data"
	default:
		return "error"
	}
}
