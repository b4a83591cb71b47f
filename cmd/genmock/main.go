// Command genmock writes synthetic composition request fixtures for the
// pipeline tests and the validate command. The curves are smooth seasonal
// shapes, not observations, but they exercise every stream a real request
// carries: leap-year comparison and analog years, sparse freeze counts,
// forecasts anchored on the last observed day and stages with no data yet.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
)

const (
	gddFile      = "gdd_request.json"
	progressFile = "progress_request.json"

	primaryYear    = 2021
	comparisonYear = 2020
	analogYear     = 2012

	// lastObservedSlot is Jul 15, the day the primary season was fetched.
	lastObservedSlot = 195
)

// stageMidpoints give the day of year at which half the crop reached a stage.
var stageMidpoints = []struct {
	name     string
	midpoint float64
}{
	{"PLANTED", 125},
	{"EMERGED", 138},
	{"SILKING", 195},
	{"DOUGH", 225},
	{"DENTED", 245},
	{"MATURE", 262},
	{"HARVESTED", 300},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "directory to write fixtures to")
	flag.Parse()

	gdd := gddRequest()
	if err := writeJSON(filepath.Join(*out, gddFile), gdd); err != nil {
		return fmt.Errorf("writing GDD fixture: %w", err)
	}
	log.Printf("wrote %s: primary=%d days, comparison=%d days", gddFile,
		len(gdd.Streams.Primary.Dates), len(comparisonDates(gdd)))

	progress := progressRequest()
	if err := writeJSON(filepath.Join(*out, progressFile), progress); err != nil {
		return fmt.Errorf("writing progress fixture: %w", err)
	}
	log.Printf("wrote %s: stages=%d, comparison stages=%d", progressFile,
		len(progress.Stages), len(progress.ComparisonStages))
	return nil
}

func gddRequest() domain.Request {
	cum := cumulativeGDD()
	first, last := freezeCounts(primaryYear)

	observed := forYear(primaryYear, 0, lastObservedSlot, func(slot int) float64 { return round1(cum[slot]) })
	base := cum[lastObservedSlot]

	return domain.Request{
		RequestID:          "fixture-gdd-2021",
		Tool:               domain.ToolGDD,
		Crop:               "Corn",
		Year:               primaryYear,
		ComparisonYear:     comparisonYear,
		Window:             domain.Window{Start: "01-01", End: "12-31"},
		Interval:           "days",
		ConfidenceInterval: 90,
		Coords:             domain.Coords{ClosestLat: 40.0, ClosestLng: -88.25},
		Streams: domain.GDDStreams{
			Primary:    observed,
			Comparison: domain.Some(scaled(cum, comparisonYear, 1.05)),
			Analog: domain.Some(domain.AnalogStream{
				Year:      analogYear,
				RawSeries: scaled(cum, analogYear, 0.95),
			}),
			Normal:      scaled(cum, primaryYear, 1.0),
			Minimum:     scaled(cum, primaryYear, 0.85),
			Maximum:     scaled(cum, primaryYear, 1.15),
			FirstFreeze: first,
			LastFreeze:  last,
			GEFS:        domain.Some(forecast(base, 35, 1.0)),
			CFS:         domain.Some(forecast(base, 120, 1.02)),
		},
	}
}

func comparisonDates(r domain.Request) []string {
	c, _ := r.Streams.Comparison.Get()
	return c.Dates
}

// dailyGDD is a seasonal growing-degree-day increment for a calendar slot.
func dailyGDD(slot int) float64 {
	return max(0, 22*math.Sin(math.Pi*float64(slot)/364)-4)
}

func cumulativeGDD() []float64 {
	cum := make([]float64, domain.CalendarDays)
	total := 0.0
	for slot := range cum {
		total += dailyGDD(slot)
		cum[slot] = total
	}
	return cum
}

// scaled lays the cumulative curve over every date of year. Leap years
// carry a Feb 29 entry like real upstream data does.
func scaled(cum []float64, year int, factor float64) domain.RawSeries {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
	var raw domain.RawSeries
	for i := range days {
		raw.Dates = append(raw.Dates, start.AddDate(0, 0, i).Format(time.DateOnly))
		raw.Values = append(raw.Values, round1(cum[min(i, len(cum)-1)]*factor))
	}
	return raw
}

func forYear(year, from, to int, value func(slot int) float64) domain.RawSeries {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var raw domain.RawSeries
	for slot := from; slot <= to; slot++ {
		raw.Dates = append(raw.Dates, start.AddDate(0, 0, slot).Format(time.DateOnly))
		raw.Values = append(raw.Values, value(slot))
	}
	return raw
}

// freezeCounts returns how many of the last 30 years saw their first fall
// and last spring freeze on each day. Days with no freezes are left out.
func freezeCounts(year int) (first, last domain.RawSeries) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	add := func(raw *domain.RawSeries, slot int, count float64) {
		if count <= 0 {
			return
		}
		raw.Dates = append(raw.Dates, start.AddDate(0, 0, slot).Format(time.DateOnly))
		raw.Values = append(raw.Values, count)
	}
	for slot := 60; slot <= 130; slot++ {
		add(&last, slot, math.Round(30*(1-float64(slot-60)/70)))
	}
	for slot := 260; slot <= 330; slot++ {
		add(&first, slot, math.Round(30*float64(slot-260)/70))
	}
	return first, last
}

// forecast continues the curve past the last observed day. Values are
// issued for the days after the base date.
func forecast(base float64, days int, factor float64) domain.ForecastSeries {
	fc := domain.ForecastSeries{
		BaseDate: time.Date(primaryYear, time.January, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, lastObservedSlot).Format(time.DateOnly),
	}
	total := base
	for i := 1; i <= days; i++ {
		total += dailyGDD(min(lastObservedSlot+i, domain.CalendarDays-1)) * factor
		fc.Values = append(fc.Values, round1(total))
	}
	return fc
}

func progressRequest() domain.Request {
	return domain.Request{
		RequestID:      "fixture-progress-2021",
		Tool:           domain.ToolProgress,
		Crop:           "Corn",
		Year:           primaryYear,
		ComparisonYear: comparisonYear,
		Window:         domain.Window{Start: "04-01", End: "11-30"},
		Interval:       "days",
		// The primary season was fetched in early September.
		Stages:           stages(primaryYear, 250),
		ComparisonStages: stages(comparisonYear, 366),
	}
}

// stages builds weekly Sunday reports from April through November, cut off
// at the given day of year. A stage no report has reached yet is empty.
func stages(year, cutoff int) []domain.StageStream {
	day := time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	end := time.Date(year, time.November, 30, 0, 0, 0, 0, time.UTC)

	out := make([]domain.StageStream, 0, len(stageMidpoints))
	for _, st := range stageMidpoints {
		stream := domain.StageStream{Name: st.name, RawSeries: domain.RawSeries{Dates: []string{}, Values: domain.Series{}}}
		for d := day; !d.After(end) && d.YearDay() <= cutoff; d = d.AddDate(0, 0, 7) {
			pct := math.Round(100 / (1 + math.Exp(-(float64(d.YearDay())-st.midpoint)/8)))
			if pct < 1 {
				continue
			}
			stream.Dates = append(stream.Dates, d.Format(time.DateOnly))
			stream.Values = append(stream.Values, pct)
			if pct >= 100 {
				break
			}
		}
		out = append(out, stream)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
