package harvest

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brewdex/brewery-harvester/pkg/breweries"
)

const metricsNamespace = "brewery_harvester"

// Metrics counts harvest outcomes.
type Metrics struct {
	loads     *prometheus.CounterVec
	published *prometheus.CounterVec
	retries   *prometheus.CounterVec
}

// NewMetrics registers the harvest counters on reg. A nil reg yields unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "loads_total",
				Help:      "Brewery loads by state and outcome (success, client_error, invalid_data).",
			},
			[]string{"state", "outcome"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "breweries_published_total",
				Help:      "Breweries accepted by at least one publisher.",
			},
			[]string{"state"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "load_retries_total",
				Help:      "Loads retried after a client error.",
			},
			[]string{"state"},
		),
	}
}

func (m *Metrics) observeLoad(state string, err error) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(state, outcome(err)).Inc()
}

func (m *Metrics) observeRetry(state string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(state).Inc()
}

func (m *Metrics) observePublished(state string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.published.WithLabelValues(state).Add(float64(n))
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var kind breweries.LoaderError
	if errors.As(err, &kind) {
		return kind.String()
	}
	return "unknown"
}
