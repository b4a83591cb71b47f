// Package rangefilter cuts display windows out of canonical calendar series.
package rangefilter

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
)

// Supported sampling intervals.
const (
	IntervalDays  = "days"
	IntervalWeeks = "weeks"
)

// LabelLayout formats window labels, e.g. "Apr 11, 2021".
const LabelLayout = "Jan 02, 2006"

var (
	// ErrInvalidWindow means the window ends before it starts.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrUnknownInterval means the interval is neither days nor weeks.
	ErrUnknownInterval = errors.New("unknown interval")
)

// Filter samples canonical series over an inclusive month-day window.
type Filter struct{}

// New creates a Filter.
func New() *Filter {
	return &Filter{}
}

// Apply returns the values of series inside the window, labeled with dates
// in year. Weekly sampling keeps every seventh day starting at the window
// start. An empty interval means days.
func (f *Filter) Apply(series domain.CanonicalSeries, window domain.Window, year int, interval string) (domain.FilteredSeries, error) {
	start, end, step, err := bounds(window, interval)
	if err != nil {
		return domain.FilteredSeries{}, err
	}

	n := (end-start)/step + 1
	out := domain.FilteredSeries{
		Data:   make(domain.Series, 0, n),
		Dates:  make([]string, 0, n),
		Offset: domain.Some(start),
		Step:   step,
	}
	for slot := start; slot <= end; slot += step {
		out.Data = append(out.Data, series.At(slot))
		out.Dates = append(out.Dates, label(slot, year))
	}
	return out, nil
}

// Labels returns the window's date labels without any data.
func (f *Filter) Labels(window domain.Window, year int, interval string) ([]string, error) {
	start, end, step, err := bounds(window, interval)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, (end-start)/step+1)
	for slot := start; slot <= end; slot += step {
		labels = append(labels, label(slot, year))
	}
	return labels, nil
}

func bounds(window domain.Window, interval string) (start, end, step int, err error) {
	switch interval {
	case "", IntervalDays:
		step = 1
	case IntervalWeeks:
		step = 7
	default:
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}

	if start, err = slotOf(window.Start); err != nil {
		return 0, 0, 0, err
	}
	if end, err = slotOf(window.End); err != nil {
		return 0, 0, 0, err
	}
	if end < start {
		return 0, 0, 0, fmt.Errorf("%w: %s is after %s", ErrInvalidWindow, window.Start, window.End)
	}
	return start, end, step, nil
}

// slotOf places a window bound on the calendar. Feb 29 falls back to Feb 28.
func slotOf(s string) (int, error) {
	key, err := domain.ParseDay(s)
	if err != nil {
		return 0, fmt.Errorf("window bound: %w", err)
	}
	if slot, ok := key.Slot(); ok {
		return slot, nil
	}
	slot, _ := domain.DayKey{Month: time.February, Day: 28}.Slot()
	return slot, nil
}

// label formats a slot in the display year. A Feb 28 slot stays Feb 28 in
// leap years; the calendar has no Feb 29.
func label(slot, year int) string {
	key := domain.SlotKey(slot)
	return time.Date(year, key.Month, key.Day, 0, 0, 0, 0, time.UTC).Format(LabelLayout)
}
