package geolib

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "geostash"

	metricsSubsystemResolver = "resolver"
	metricsSubsystemProvider = "provider"
)

// Metrics is a set of Prometheus collectors updated by Orchestrator. A
// nil *Metrics is valid and does nothing.
type Metrics struct {
	resolutions        *prometheus.CounterVec
	resolutionFailures *prometheus.CounterVec
	providerErrors     *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
}

func (m *Metrics) resolved(source Source) {
	if m != nil {
		m.resolutions.WithLabelValues(string(source)).Inc()
	}
}

func (m *Metrics) failed(kind ResolutionErrorKind) {
	if m != nil {
		m.resolutionFailures.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) providerCalled(provider string, started time.Time, err error) {
	if m == nil {
		return
	}

	m.providerDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())

	if err != nil {
		m.providerErrors.WithLabelValues(provider, AsProviderError(err).Kind.String()).Inc()
	}
}

// NewMetrics registers collectors in a given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "resolutions_total",
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystemResolver,
			Help:      "The number of resolved addresses by the source of data.",
		}, []string{"source"}),
		resolutionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "failures_total",
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystemResolver,
			Help:      "The number of addresses which were not resolved.",
		}, []string{"kind"}),
		providerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "errors_total",
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystemProvider,
			Help:      "The number of failed provider lookups by the kind of failure.",
		}, []string{"provider", "kind"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "lookup_duration_seconds",
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystemProvider,
			Help:      "Time spent on provider lookups including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}
