package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	l := NewNop()
	l.zap = zap.New(core)
	return l, logs
}

func TestParseLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseSlogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseSlogLevel("bogus"))
	assert.Equal(t, zapcore.WarnLevel, parseZapLevel("warn").Level())
	assert.Equal(t, zapcore.InfoLevel, parseZapLevel("").Level())
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(Config{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, l.GetZap().Core().Enabled(zapcore.DebugLevel))
	assert.NotNil(t, l.GetSlog())

	_, err = NewLogger(Config{Format: "xml"})
	require.Error(t, err)
}

func TestLogRun(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.LogRun(context.Background(), "clingo", "ok", 1500*time.Microsecond, 3)
	l.LogRun(context.Background(), "clingo", "error", time.Millisecond, 0)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["answer_sets"])
	assert.Equal(t, 1.5, entries[0].ContextMap()["duration_ms"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestLogDecodeFailure(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.LogDecodeFailure(context.Background(), "concept", "(1,)", errors.New("missing extent"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "concept", fields["spec"])
	assert.Equal(t, "missing extent", fields["error"])
	_, traced := fields["trace_id"]
	assert.False(t, traced)
}

func TestDebugKeyValues(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.Debug("parsed", "answers", 2, "dangling")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, map[string]interface{}{"answers": int64(2)}, logs.All()[0].ContextMap())
}
