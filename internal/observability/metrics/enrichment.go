package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EnrichmentMetrics counts derivation outcomes and adduct table loads.
type EnrichmentMetrics struct {
	service string

	derivationsTotal  *prometheus.CounterVec
	tableLoadsTotal   *prometheus.CounterVec
	tableLoadDuration *prometheus.HistogramVec
}

func NewEnrichmentMetrics(service string, registerer prometheus.Registerer) *EnrichmentMetrics {
	derivationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ionmode",
			Subsystem: "derive",
			Name:      "records_total",
			Help:      "Total derivations by outcome.",
		},
		[]string{"service", "outcome"},
	)
	tableLoadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ionmode",
			Subsystem: "adduct_table",
			Name:      "lookups_total",
			Help:      "Adduct table lookups by result (hit, loaded, shared, error).",
		},
		[]string{"service", "result"},
	)
	tableLoadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ionmode",
			Subsystem: "adduct_table",
			Name:      "lookup_duration_seconds",
			Help:      "Adduct table lookup duration in seconds by result.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"service", "result"},
	)

	registerer.MustRegister(derivationsTotal, tableLoadsTotal, tableLoadDuration)

	return &EnrichmentMetrics{
		service:           service,
		derivationsTotal:  derivationsTotal,
		tableLoadsTotal:   tableLoadsTotal,
		tableLoadDuration: tableLoadDuration,
	}
}

func (m *EnrichmentMetrics) ObserveDerivation(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.derivationsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *EnrichmentMetrics) ObserveTableLoad(result string, duration time.Duration) {
	m.tableLoadsTotal.WithLabelValues(m.service, result).Inc()
	m.tableLoadDuration.WithLabelValues(m.service, result).Observe(duration.Seconds())
}
