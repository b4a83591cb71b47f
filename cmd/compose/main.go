// Command compose turns one request file into a dataset state without Kafka.
// It runs the same transformer as the service, so its output is what the
// sink topic would carry for that request.
//
// Usage:
//
//	go run ./cmd/compose -in data/mock/gdd_request.json -out state.json
//	go run ./cmd/compose -in - -legend < request.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/couchcryptid/dawn-chart-composer/internal/config"
	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/couchcryptid/dawn-chart-composer/internal/pipeline"
	"github.com/couchcryptid/dawn-chart-composer/internal/rangefilter"
)

// output is the state plus, on request, the legend rows a renderer would draw.
type output struct {
	State  domain.DatasetState  `json:"state"`
	Legend []domain.LegendEntry `json:"legend,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "request JSON file, or - for stdin")
	out := flag.String("out", "", "output file (default stdout)")
	themePath := flag.String("theme", "", "optional theme YAML file")
	forecastYear := flag.Int("forecast-year", domain.ReferenceYear, "year forecasts are drawn for")
	withLegend := flag.Bool("legend", false, "include legend rows in the output")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -in")
	}

	data, err := readInput(*in)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	theme := domain.DefaultTheme()
	if *themePath != "" {
		if theme, err = config.LoadTheme(*themePath); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	transformer := pipeline.NewTransformer(
		domain.CalendarMapper{}, rangefilter.New(), theme, *forecastYear, logger, observability.NewMetricsForTesting(),
	)

	req, err := domain.ParseRequest(domain.RawEvent{Value: data})
	if err != nil {
		return err
	}
	state, err := transformer.Compose(context.Background(), req)
	if err != nil {
		return err
	}

	result := output{State: state}
	if *withLegend {
		result.Legend = domain.Legend(state)
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	encoded = append(encoded, '\n')

	if *out == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	return os.WriteFile(*out, encoded, 0o600)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
