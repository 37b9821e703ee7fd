package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Config holds the protection settings of one external dependency
type Config struct {
	Name        string                             `json:"name"`
	MaxRate     float64                            `json:"max_rate"`     // calls per second, 0 = unlimited
	Burst       int                                `json:"burst"`
	MaxRetries  int                                `json:"max_retries"`
	BaseDelay   time.Duration                      `json:"base_delay"`
	MaxDelay    time.Duration                      `json:"max_delay"`
	Jitter      bool                               `json:"jitter"`
	MaxRequests uint32                             `json:"max_requests"` // allowed while half-open
	Interval    time.Duration                      `json:"interval"`
	Timeout     time.Duration                      `json:"timeout"`      // open -> half-open
	ReadyToTrip func(counts gobreaker.Counts) bool `json:"-"`

	OnStateChange func(name string, from, to gobreaker.State) `json:"-"`
}

// DefaultConfig returns a default configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:        name,
		Burst:       1,
		MaxRetries:  2,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      true,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open after 5 consecutive failures
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// RetryableError marks an error as worth another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so that Guard retries it
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Guard combines rate limiting, retries and a circuit breaker
type Guard struct {
	config  *Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuard creates a guard
func NewGuard(config *Config) *Guard {
	if config == nil {
		config = DefaultConfig("default")
	}

	g := &Guard{config: config}
	if config.MaxRate > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.MaxRate), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: config.ReadyToTrip,

		OnStateChange: config.OnStateChange,
	})
	return g
}

// Execute waits for the rate limiter, then runs fn through the circuit
// breaker, retrying errors marked with Retryable
func (g *Guard) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("circuit breaker %s: %w", g.config.Name, err)
		}
		if !IsRetryable(err) || attempt == g.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.delay(attempt)):
		}
	}

	if IsRetryable(lastErr) && g.config.MaxRetries > 0 {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return lastErr
}

// State returns the circuit breaker state
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the circuit breaker counters
func (g *Guard) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

// delay calculates the backoff before the given retry
func (g *Guard) delay(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^attempt
	delay := float64(g.config.BaseDelay) * math.Pow(2, float64(attempt))

	if delay > float64(g.config.MaxDelay) {
		delay = float64(g.config.MaxDelay)
	}

	if g.config.Jitter {
		// +/- 25%
		delay *= 0.75 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}
