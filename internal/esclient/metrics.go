package esclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records store request counts and latencies.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	documents     prometheus.Counter
}

// NewMetrics creates the store collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prosoul",
			Name:      "store_requests_total",
			Help:      "Total store requests by operation, dialect and outcome.",
		}, []string{"op", "dialect", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prosoul",
			Name:      "store_request_duration_seconds",
			Help:      "Histogram of store request durations by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prosoul",
			Name:      "published_documents_total",
			Help:      "Total score documents published.",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.duration, m.documents)
	return m
}

// observe is safe on a nil receiver so metrics stay optional.
func (m *Metrics) observe(op, dialect string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requestsTotal.WithLabelValues(op, dialect, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) published(n int) {
	if m == nil {
		return
	}
	m.documents.Add(float64(n))
}
