package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/snow-ghost/asp/core"
	"github.com/snow-ghost/asp/decoder"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Solver metrics
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RunAnswerSets   prometheus.Histogram
	CircuitStateSet *prometheus.GaugeVec

	// Answer metrics
	AnswerSetsTotal prometheus.Counter
	AtomsHistogram  prometheus.Histogram

	// Decoder metrics
	ObjectsTotal *prometheus.CounterVec
}

var (
	_ core.Observer = (*PrometheusMetrics)(nil)
)

// NewPrometheusMetrics creates the metrics on a registry of their own
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		// Solver metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asp_solver_runs_total",
				Help: "Total number of solver runs by outcome",
			},
			[]string{"status"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asp_solver_run_duration_seconds",
				Help:    "Solver run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		RunAnswerSets: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asp_solver_run_answer_sets",
				Help:    "Number of answer sets read per solver run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),

		CircuitStateSet: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asp_solver_circuit_state",
				Help: "Circuit breaker state, 1 for the current state",
			},
			[]string{"breaker", "state"},
		),

		// Answer metrics
		AnswerSetsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "asp_answer_sets_total",
				Help: "Total number of answer sets transformed",
			},
		),

		AtomsHistogram: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asp_answer_set_atoms",
				Help:    "Number of atoms per answer set",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		// Decoder metrics
		ObjectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asp_decoded_objects_total",
				Help: "Total number of decoded objects by spec and outcome",
			},
			[]string{"spec", "status"},
		),
	}
}

// ObserveAnswer records a transformed answer set
func (m *PrometheusMetrics) ObserveAnswer(atoms int) {
	m.AnswerSetsTotal.Inc()
	m.AtomsHistogram.Observe(float64(atoms))
}

// ObserveDecode records a decoded object or a failed group
func (m *PrometheusMetrics) ObserveDecode(spec string, err error) {
	m.ObjectsTotal.WithLabelValues(spec, decodeStatus(err)).Inc()
}

func decodeStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, decoder.ErrMissing):
		return "missing"
	case errors.Is(err, decoder.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, decoder.ErrShortAtom):
		return "short_atom"
	default:
		return "build_error"
	}
}

// ObserveRun records a finished solver run
func (m *PrometheusMetrics) ObserveRun(status string, answerSets int, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunAnswerSets.Observe(float64(answerSets))
	if status != "start_failed" {
		m.RunDuration.Observe(elapsed.Seconds())
	}
}

// RecordCircuitState marks to as the current state of breaker
func (m *PrometheusMetrics) RecordCircuitState(breaker string, to gobreaker.State) {
	for _, s := range []gobreaker.State{gobreaker.StateClosed, gobreaker.StateHalfOpen, gobreaker.StateOpen} {
		value := 0.0
		if s == to {
			value = 1
		}
		m.CircuitStateSet.WithLabelValues(breaker, s.String()).Set(value)
	}
}

// Registry returns the registry holding the metrics
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
