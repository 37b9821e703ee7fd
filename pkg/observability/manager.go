package observability

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snow-ghost/asp/core"
	"github.com/snow-ghost/asp/decoder"
	"github.com/snow-ghost/asp/pkg/limiter"
	"github.com/snow-ghost/asp/pkg/logging"
	"github.com/snow-ghost/asp/pkg/metrics"
	"github.com/snow-ghost/asp/pkg/tracing"
)

// Manager manages all observability components. It observes the answer,
// decoder and solver pipelines and fans their events out to metrics and logs.
type Manager struct {
	metrics *metrics.PrometheusMetrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
	binary  string
}

var _ core.Observer = (*Manager)(nil)

// Config holds observability configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string
	Binary         string // solver reported in run logs
}

// NewManager creates a new observability manager
func NewManager(config Config) (*Manager, error) {
	tracer, err := tracing.NewTracer(tracing.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		JaegerEndpoint: config.JaegerEndpoint,
		Environment:    config.Environment,
	})
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:     config.LogLevel,
		Format:    config.LogFormat,
		Output:    "stderr",
		AddCaller: true,
	})
	if err != nil {
		return nil, err
	}

	return newManager(metrics.NewPrometheusMetrics(), tracer, logger, config.Binary), nil
}

func newManager(m *metrics.PrometheusMetrics, t *tracing.Tracer, l *logging.Logger, binary string) *Manager {
	return &Manager{metrics: m, tracer: t, logger: l, binary: binary}
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *metrics.PrometheusMetrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// ObserveAnswer records a transformed answer set
func (m *Manager) ObserveAnswer(atoms int) {
	m.metrics.ObserveAnswer(atoms)
}

// ObserveDecode records a decoded object and logs failed groups
func (m *Manager) ObserveDecode(spec string, err error) {
	m.metrics.ObserveDecode(spec, err)
	if err == nil {
		return
	}
	key := ""
	var ge *decoder.GroupError
	if errors.As(err, &ge) {
		key = ge.Key.String()
	}
	m.logger.LogDecodeFailure(context.Background(), spec, key, err)
}

// ObserveRun records a finished solver run
func (m *Manager) ObserveRun(status string, answerSets int, elapsed time.Duration) {
	m.metrics.ObserveRun(status, answerSets, elapsed)
	m.logger.LogRun(context.Background(), m.binary, status, elapsed, answerSets)
}

// RecordCircuitBreaker records a circuit breaker state change
func (m *Manager) RecordCircuitBreaker(name string, from, to gobreaker.State) {
	m.metrics.RecordCircuitState(name, to)
	m.logger.LogCircuitBreaker(name, from.String(), to.String())
}

// GuardConfig returns the default guard settings for name with state
// changes reported to this manager
func (m *Manager) GuardConfig(name string, maxRate float64) *limiter.Config {
	cfg := limiter.DefaultConfig(name)
	cfg.MaxRate = maxRate
	cfg.OnStateChange = m.RecordCircuitBreaker
	return cfg
}

// Shutdown shuts down all observability components
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.tracer.Shutdown(ctx); err != nil {
		return err
	}
	// syncing stderr fails on some platforms
	_ = m.logger.Sync()
	return nil
}
