package generator

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments a Generator. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the generator's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficgen_requests_total",
				Help: "Requests sent by the traffic generator, by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trafficgen_request_duration_seconds",
				Help:    "Time from sending a request to classifying its outcome",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strings.ToLower(o.Kind.String())).Inc()
	m.duration.Observe(o.Latency.Seconds())
}
