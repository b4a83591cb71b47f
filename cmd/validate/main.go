// Command validate composes the request fixtures and checks the dataset
// states against the contract the chart renderer relies on: calendar
// projection, overlay order and lengths, fill pairing, forecast connection,
// tooltip suppression, legend rows and color pairing, and deterministic
// output.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -gdd data/mock/gdd_request.json \
//	  -progress data/mock/progress_request.json \
//	  -theme theme.yaml
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/config"
	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/couchcryptid/dawn-chart-composer/internal/pipeline"
	"github.com/couchcryptid/dawn-chart-composer/internal/rangefilter"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fixture is one request and the state composed from it.
type fixture struct {
	path    string
	request domain.Request
	state   domain.DatasetState
	encoded []byte
}

func main() {
	gddPath := flag.String("gdd", "data/mock/gdd_request.json", "path to GDD request fixture")
	progressPath := flag.String("progress", "data/mock/progress_request.json", "path to crop progress request fixture")
	themePath := flag.String("theme", "", "optional theme YAML file")
	forecastYear := flag.Int("forecast-year", domain.ReferenceYear, "year forecasts are drawn for")
	flag.Parse()

	if code := run(*gddPath, *progressPath, *themePath, *forecastYear); code != 0 {
		os.Exit(code)
	}
}

func run(gddPath, progressPath, themePath string, forecastYear int) int {
	// Freeze composition time so repeated compositions are comparable.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2021, time.July, 15, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Dataset State Contract Validation ===")
	fmt.Println()

	theme := domain.DefaultTheme()
	if themePath != "" {
		var err error
		if theme, err = config.LoadTheme(themePath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load theme: %v\n", err)
			return 1
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transformer := pipeline.NewTransformer(
		domain.CalendarMapper{}, rangefilter.New(), theme, forecastYear, logger, observability.NewMetricsForTesting(),
	)

	gdd, err := compose(transformer, gddPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	progress, err := compose(transformer, progressPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateProjection(gdd, progress),
		validateGDDState(gdd, forecastYear),
		validateProgressState(progress),
		validateDeterminism(transformer, gdd, progress),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("States: gdd=%s (%d overlays), progress=%s (%d overlays)\n",
		gdd.state.Status, len(gdd.state.Overlays), progress.state.Status, len(progress.state.Overlays))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func compose(t *pipeline.ComposeTransformer, path string) (fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fixture{}, fmt.Errorf("read %s: %w", path, err)
	}
	req, err := domain.ParseRequest(domain.RawEvent{Value: data})
	if err != nil {
		return fixture{}, fmt.Errorf("%s: %w", path, err)
	}
	state, err := t.Compose(context.Background(), req)
	if err != nil {
		return fixture{}, fmt.Errorf("compose %s: %w", path, err)
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return fixture{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return fixture{path: path, request: req, state: state, encoded: encoded}, nil
}

// ── Phase 1: calendar projection ──

func validateProjection(fixtures ...fixture) *phase {
	p := &phase{name: "Calendar projection"}
	for _, f := range fixtures {
		for _, cs := range f.state.Series {
			name := string(cs.Role)
			if cs.Category != "" {
				name += "/" + cs.Category
			}
			checkProjection(p, f.path, name, cs.Bundle)
		}
	}
	return p
}

func checkProjection(p *phase, path, name string, b domain.SeriesBundle) {
	if n := b.Initial.Mapped.Len(); n != domain.CalendarDays {
		p.errorf("%s %s: mapped series has %d slots, want %d", path, name, n, domain.CalendarDays)
		return
	}
	if b.Initial.Raw.Empty() {
		return
	}
	_, skipped := domain.MapSeries(b.Initial.Raw)
	if len(skipped) > 0 {
		p.errorf("%s %s: %d unparseable dates, first %q", path, name, len(skipped), skipped[0])
	}
	for i, d := range b.Initial.Raw.Dates {
		key, err := domain.ParseDay(d)
		if err != nil {
			continue
		}
		v, ok := b.Initial.Mapped.Lookup(key)
		if !ok {
			if key.Month != time.February || key.Day != 29 {
				p.errorf("%s %s: date %s has no calendar slot", path, name, d)
			}
			continue
		}
		if raw := b.Initial.Raw.Values[i]; !domain.IsMissing(raw) && raw != v {
			// A repeated month-day keeps the last value, so only flag the last occurrence.
			if lastIndexOfDay(b.Initial.Raw.Dates, key) == i {
				p.errorf("%s %s: %s mapped to %g, want %g", path, name, d, v, raw)
			}
		}
	}
}

func lastIndexOfDay(dates []string, key domain.DayKey) int {
	for i := len(dates) - 1; i >= 0; i-- {
		if k, err := domain.ParseDay(dates[i]); err == nil && k == key {
			return i
		}
	}
	return -1
}

// ── Phase 2: GDD state ──

func validateGDDState(f fixture, forecastYear int) *phase {
	p := &phase{name: "GDD state contract"}
	s := f.state
	if s.Tool != domain.ToolGDD {
		p.errorf("tool = %q, want gdd", s.Tool)
		return p
	}
	if s.Status != domain.StatusOK {
		p.errorf("status = %q: %s", s.Status, s.Message)
		return p
	}

	checkLengths(p, s)
	checkFills(p, s)

	ids := make([]string, 0, len(s.Overlays))
	for _, o := range s.Overlays {
		ids = append(ids, o.ID)
	}
	want := expectedGDDOrder(f.request, forecastYear)
	if !slices.Equal(ids, want) {
		p.errorf("overlay order = %v, want %v", ids, want)
	}

	for i, o := range s.Overlays {
		if o.Tooltip.Mode != domain.TooltipHideAtConnection {
			continue
		}
		day, ok := s.ConnectionDay.Get()
		if !ok {
			p.errorf("%s: forecast drawn without a connection day", o.ID)
			continue
		}
		idx, ok := o.Tooltip.SuppressIndex.Get()
		if !ok {
			p.errorf("%s: connection day %s is outside the window", o.ID, day)
			continue
		}
		if _, shown := domain.TooltipText(s, i, idx); shown {
			p.errorf("%s: tooltip shown at connection index %d", o.ID, idx)
		}
	}

	for _, e := range domain.Legend(s) {
		if e.Overlay == string(domain.RoleMinimum) || e.Overlay == string(domain.RoleFirstFreeze) {
			p.errorf("legend shows %s, which toggles with its partner", e.Overlay)
		}
	}
	return p
}

// expectedGDDOrder lists overlay ids in the order the composer must emit
// them for a request whose streams are all present.
func expectedGDDOrder(req domain.Request, forecastYear int) []string {
	hasComparison := req.HasComparison() && req.ComparisonYear != req.Year
	var forecasts []string
	if req.Streams.GEFS.IsSome() {
		forecasts = append(forecasts, string(domain.RoleGEFS))
	}
	if req.Streams.CFS.IsSome() {
		forecasts = append(forecasts, string(domain.RoleCFS))
	}

	var ids []string
	if req.Year == forecastYear {
		ids = append(ids, forecasts...)
	}
	ids = append(ids, string(domain.RolePrimary))
	if req.Year != forecastYear && hasComparison && req.ComparisonYear == forecastYear {
		ids = append(ids, forecasts...)
	}
	if req.Streams.Analog.IsSome() {
		ids = append(ids, string(domain.RoleAnalog))
	}
	if hasComparison {
		ids = append(ids, string(domain.RoleComparison))
	}
	return append(ids,
		string(domain.RoleNormal),
		string(domain.RoleMaximum), string(domain.RoleMinimum),
		string(domain.RoleLastFreeze), string(domain.RoleFirstFreeze),
	)
}

// ── Phase 3: crop progress state ──

func validateProgressState(f fixture) *phase {
	p := &phase{name: "Crop progress state contract"}
	s := f.state
	if s.Tool != domain.ToolProgress {
		p.errorf("tool = %q, want progress", s.Tool)
		return p
	}
	if s.Status != domain.StatusOK {
		p.errorf("status = %q: %s", s.Status, s.Message)
		return p
	}
	checkLengths(p, s)

	if s.Colors == nil {
		p.errorf("state has no color table")
		return p
	}

	stages := map[string]bool{}
	for _, o := range s.Overlays {
		stages[o.LegendGroup] = true
		comparison := o.Dash != nil
		var want string
		var ok bool
		if comparison {
			want, ok = s.Colors.Comparison(o.LegendGroup)
		} else {
			want, ok = s.Colors.Primary(o.LegendGroup)
		}
		if !ok {
			p.errorf("%s: stage %q has no color", o.ID, o.LegendGroup)
		} else if o.Color != want {
			p.errorf("%s: color %s, want %s", o.ID, o.Color, want)
		}
	}

	legend := domain.Legend(s)
	if len(legend) != len(stages) {
		p.errorf("legend has %d rows for %d stages", len(legend), len(stages))
	}
	for _, e := range legend {
		if domain.StripYear(e.Text) != e.Text {
			p.errorf("legend row %q still carries a year", e.Text)
		}
	}
	return p
}

// ── Phase 4: determinism ──

func validateDeterminism(t *pipeline.ComposeTransformer, fixtures ...fixture) *phase {
	p := &phase{name: "Deterministic composition"}
	for _, f := range fixtures {
		again, err := compose(t, f.path)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if !bytes.Equal(f.encoded, again.encoded) {
			p.errorf("%s: recomposed state differs", f.path)
		}
	}
	return p
}

// ── Shared checks ──

func checkLengths(p *phase, s domain.DatasetState) {
	for _, o := range s.Overlays {
		if len(o.Data) != len(s.Labels) {
			p.errorf("%s: %d values for %d labels", o.ID, len(o.Data), len(s.Labels))
		}
	}
}

func checkFills(p *phase, s domain.DatasetState) {
	for i, o := range s.Overlays {
		if o.Fill == 0 {
			continue
		}
		target := i + int(o.Fill)
		if target < 0 || target >= len(s.Overlays) {
			p.errorf("%s: fill target %d out of range", o.ID, target)
			continue
		}
		if s.Overlays[target].PairedWith != o.ID {
			p.errorf("%s: fills toward %s, which is not its partner", o.ID, s.Overlays[target].ID)
		}
	}
}
