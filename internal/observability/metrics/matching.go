package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MatchingMetrics implements ports.MatchingObserver and also counts intent
// events consumed by the worker and resilience activity.
type MatchingMetrics struct {
	service string

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	matchesCreated *prometheus.CounterVec
	matchScore     *prometheus.HistogramVec
	decisionsTotal *prometheus.CounterVec

	sweepTotal    *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepUsers    *prometheus.GaugeVec

	eventsTotal    *prometheus.CounterVec
	eventsInFlight prometheus.Gauge

	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewMatchingMetrics(service string, registry *prometheus.Registry) *MatchingMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Per-intent matching runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "run_duration_seconds",
			Help:      "Per-intent matching duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	matchesCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "matches_created_total",
			Help:      "Pending matches persisted.",
		},
		[]string{"service"},
	)
	matchScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "score",
			Help:      "Distribution of candidate scores, including those under the threshold.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "decisions_total",
			Help:      "Accept and reject calls by outcome.",
		},
		[]string{"service", "decision", "outcome"},
	)
	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Completed sweeps by status.",
		},
		[]string{"service", "status"},
	)
	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	sweepUsers := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "last_users",
			Help:      "Users scanned by the most recent sweep.",
		},
		[]string{"service"},
	)
	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "intent_events_total",
			Help:      "Consumed intent.created events by status.",
		},
		[]string{"service", "status"},
	)
	eventsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "intent_events_in_flight",
			Help:      "Intent events being matched right now.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried calls to external dependencies.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker for an operation is not closed.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		runsTotal,
		runDuration,
		matchesCreated,
		matchScore,
		decisionsTotal,
		sweepTotal,
		sweepDuration,
		sweepUsers,
		eventsTotal,
		eventsInFlight,
		retriesTotal,
		breakerState,
	)

	return &MatchingMetrics{
		service:        service,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		matchesCreated: matchesCreated,
		matchScore:     matchScore,
		decisionsTotal: decisionsTotal,
		sweepTotal:     sweepTotal,
		sweepDuration:  sweepDuration,
		sweepUsers:     sweepUsers,
		eventsTotal:    eventsTotal,
		eventsInFlight: eventsInFlight,
		retriesTotal:   retriesTotal,
		breakerState:   breakerState,
	}
}

func (m *MatchingMetrics) ObserveMatchRun(outcome string, created int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.runsTotal.WithLabelValues(m.service, outcome).Inc()
	m.runDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	if created > 0 {
		m.matchesCreated.WithLabelValues(m.service).Add(float64(created))
	}
}

func (m *MatchingMetrics) ObserveMatchScore(score float64) {
	m.matchScore.WithLabelValues(m.service).Observe(score)
}

func (m *MatchingMetrics) ObserveDecision(decision, outcome string) {
	m.decisionsTotal.WithLabelValues(m.service, decision, outcome).Inc()
}

func (m *MatchingMetrics) ObserveSweep(users, _ int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sweepTotal.WithLabelValues(m.service, status).Inc()
	m.sweepDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	m.sweepUsers.WithLabelValues(m.service).Set(float64(users))
}

func (m *MatchingMetrics) StartEvent() {
	m.eventsInFlight.Inc()
}

func (m *MatchingMetrics) FinishEvent(err error) {
	m.eventsInFlight.Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(m.service, status).Inc()
}

func (m *MatchingMetrics) RecordRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *MatchingMetrics) RecordBreakerState(operation, _, to string) {
	open := 0.0
	if to != "closed" {
		open = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(open)
}
