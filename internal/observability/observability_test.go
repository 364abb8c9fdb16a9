package observability

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.RunProbes.WithLabelValues("hrrr", "confirmed").Inc()
	m.IndexCache.WithLabelValues("hit").Add(2)
	m.WatcherRunning.Set(1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunProbes.WithLabelValues("hrrr", "confirmed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.IndexCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WatcherRunning), 0)
}
