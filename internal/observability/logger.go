package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/dawn-chart-composer/internal/config"
)

// ServiceName tags every log line the composer writes.
const ServiceName = "dawn-chart-composer"

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger
}
