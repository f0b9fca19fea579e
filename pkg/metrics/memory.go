package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Memorize outcomes.
const (
	OutcomeStored = "stored"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Item write kinds.
const (
	ItemCreated    = "created"
	ItemReinforced = "reinforced"
)

func (m *Manager) initMemoryMetrics(cfg Config) {
	m.memorizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memorize_total",
			Help:      "Memorize calls by outcome",
		},
		[]string{"outcome"},
	)

	m.itemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_written_total",
			Help:      "Memory items written, split into new items and reinforcements",
		},
		[]string{"kind"},
	)

	m.retrieveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieve_total",
			Help:      "Retrieve calls by method",
		},
		[]string{"method"},
	)

	m.retrieveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_duration_seconds",
			Help:      "Retrieve latency in seconds",
			Buckets:   cfg.RetrieveDurationBuckets,
		},
		[]string{"method"},
	)

	m.degradedStages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_stage_total",
			Help:      "Pipeline stages that fell back to an empty result after an external failure",
		},
		[]string{"stage"},
	)

	m.registry.MustRegister(m.memorizeTotal)
	m.registry.MustRegister(m.itemsWritten)
	m.registry.MustRegister(m.retrieveTotal)
	m.registry.MustRegister(m.retrieveDuration)
	m.registry.MustRegister(m.degradedStages)
}

// RecordMemorize records the outcome of one Memorize call.
func (m *Manager) RecordMemorize(outcome string) {
	if !m.Enabled() {
		return
	}
	m.memorizeTotal.WithLabelValues(outcome).Inc()
}

// RecordItemWritten records one item insert or reinforcement.
func (m *Manager) RecordItemWritten(reinforced bool) {
	if !m.Enabled() {
		return
	}
	kind := ItemCreated
	if reinforced {
		kind = ItemReinforced
	}
	m.itemsWritten.WithLabelValues(kind).Inc()
}

// RecordRetrieve records one Retrieve call and its latency.
func (m *Manager) RecordRetrieve(method string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.retrieveTotal.WithLabelValues(method).Inc()
	m.retrieveDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordDegraded records a stage that degraded to an empty result.
func (m *Manager) RecordDegraded(stage string) {
	if !m.Enabled() {
		return
	}
	m.degradedStages.WithLabelValues(stage).Inc()
}
