package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/dawn-chart-composer/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Level(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := map[string]struct {
		level string
		debug bool
		warn  bool
	}{
		"debug":   {level: "debug", debug: true, warn: true},
		"default": {level: "", debug: false, warn: true},
		"error":   {level: "ERROR", debug: false, warn: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "text"})

			assert.Equal(t, tt.debug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tt.warn, logger.Enabled(context.Background(), slog.LevelWarn))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestNewMetricsForTesting_Isolated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RequestsConsumed.Inc()
	a.UnavailableStates.WithLabelValues("gdd").Inc()
	b.SeriesCacheLookups.WithLabelValues("hit").Inc()

	assert.NotSame(t, a.RequestsConsumed, b.RequestsConsumed)
}
