package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes recorded by Metrics.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusInvalid  = "invalid"
	StatusRejected = "rejected"
)

// Metrics are the Prometheus series of the stream endpoints.
type Metrics struct {
	streams  *prometheus.CounterVec
	tuples   prometheus.Counter
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

// NewMetrics registers the stream series with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		streams: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuplestream",
			Name:      "streams_total",
			Help:      "Stream requests by outcome.",
		}, []string{"status"}),
		tuples: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tuplestream",
			Name:      "tuples_written_total",
			Help:      "Data tuples written to stream responses.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tuplestream",
			Name:      "stream_duration_seconds",
			Help:      "Time from request to the last tuple written.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tuplestream",
			Name:      "streams_in_flight",
			Help:      "Streams currently being written.",
		}),
	}
}

func (m *Metrics) outcome(status string) {
	if m != nil {
		m.streams.WithLabelValues(status).Inc()
	}
}

// Prometheus serves the metrics gathered by g.
func Prometheus(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
