package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/goccy/go-yaml"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Composition settings.
	ForecastYear    int
	SeriesCacheSize int
	ThemeFile       string
	Theme           domain.Theme
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	forecastYear, err := parsePositiveInt("FORECAST_YEAR", domain.ReferenceYear)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("SERIES_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	themeFile := os.Getenv("THEME_FILE")
	theme := domain.DefaultTheme()
	if themeFile != "" {
		if theme, err = LoadTheme(themeFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "chart-compose-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "chart-dataset-states"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "dawn-chart-composer"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ForecastYear:    forecastYear,
		SeriesCacheSize: cacheSize,
		ThemeFile:       themeFile,
		Theme:           theme,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// LoadTheme reads a YAML theme file. Fields the file leaves out keep their
// default colors.
func LoadTheme(path string) (domain.Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Theme{}, fmt.Errorf("read THEME_FILE: %w", err)
	}
	theme := domain.DefaultTheme()
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return domain.Theme{}, fmt.Errorf("parse THEME_FILE: %w", err)
	}
	if err := validateTheme(theme); err != nil {
		return domain.Theme{}, fmt.Errorf("invalid THEME_FILE: %w", err)
	}
	return theme, nil
}

func validateTheme(t domain.Theme) error {
	if len(t.Palettes.Primary) == 0 || len(t.Palettes.Comparison) == 0 {
		return errors.New("palettes must not be empty")
	}
	if len(t.Palettes.Primary) != len(t.Palettes.Comparison) {
		return fmt.Errorf("primary palette has %d colors but comparison has %d",
			len(t.Palettes.Primary), len(t.Palettes.Comparison))
	}
	for i, c := range append(append([]string{}, t.Palettes.Primary...), t.Palettes.Comparison...) {
		if c == "" {
			return fmt.Errorf("palette color %d is empty", i)
		}
	}
	return nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
