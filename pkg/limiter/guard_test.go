package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func fastConfig(name string) *Config {
	cfg := DefaultConfig(name)
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestGuardSuccess(t *testing.T) {
	g := NewGuard(fastConfig("ok"))
	calls := 0
	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuardRetriesRetryableErrors(t *testing.T) {
	g := NewGuard(fastConfig("flaky"))
	calls := 0
	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("busy"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestGuardGivesUpAfterMaxRetries(t *testing.T) {
	cfg := fastConfig("busy")
	cfg.MaxRetries = 1
	g := NewGuard(cfg)
	busy := errors.New("busy")

	calls := 0
	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		return Retryable(busy)
	})
	require.ErrorIs(t, err, busy)
	require.Contains(t, err.Error(), "max retries exceeded")
	require.Equal(t, 2, calls)
}

func TestGuardDoesNotRetryPlainErrors(t *testing.T) {
	g := NewGuard(fastConfig("plain"))
	boom := errors.New("boom")
	calls := 0
	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
	require.False(t, IsRetryable(err))
	require.Nil(t, Retryable(nil))
}

func TestGuardOpensCircuit(t *testing.T) {
	cfg := fastConfig("failing")
	cfg.MaxRetries = 0
	g := NewGuard(cfg)

	for i := 0; i < 5; i++ {
		_ = g.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	}
	require.Equal(t, gobreaker.StateOpen, g.State())

	calls := 0
	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Zero(t, calls)
}

func TestGuardRateLimitHonoursContext(t *testing.T) {
	cfg := fastConfig("limited")
	cfg.MaxRate = 0.001
	g := NewGuard(cfg)

	require.NoError(t, g.Execute(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Execute(ctx, func(context.Context) error { return nil })
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limiter wait failed")
}

func TestGuardReportsStateChanges(t *testing.T) {
	cfg := fastConfig("watched")
	cfg.MaxRetries = 0
	cfg.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 }
	var changes []string
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		changes = append(changes, name+":"+from.String()+"->"+to.String())
	}
	g := NewGuard(cfg)

	_ = g.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	require.Equal(t, []string{"watched:closed->open"}, changes)
}
