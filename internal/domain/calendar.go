package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// CalendarDays is the length of the canonical calendar. Leap days are not
	// represented.
	CalendarDays = 365

	// ReferenceYear is the non-leap year whose days define the calendar slots.
	ReferenceYear = 2021

	dayKeyLayout = "Jan 02"
)

// dateLayouts are tried in order when parsing upstream dates.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01-02",
	dayKeyLayout,
}

// DayKey identifies a calendar day independent of year.
type DayKey struct {
	Month time.Month
	Day   int
}

// String formats the key as "Jan 02".
func (k DayKey) String() string {
	return time.Date(ReferenceYear, k.Month, k.Day, 0, 0, 0, 0, time.UTC).Format(dayKeyLayout)
}

// MarshalText encodes the key as "Jan 02".
func (k DayKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "Jan 02".
func (k *DayKey) UnmarshalText(text []byte) error {
	t, err := time.Parse(dayKeyLayout, string(text))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedDate, text)
	}
	*k = DayKey{Month: t.Month(), Day: t.Day()}
	return nil
}

// Slot returns the key's calendar position. Feb 29 has none.
func (k DayKey) Slot() (int, bool) {
	if k.Month < time.January || k.Month > time.December || k.Day < 1 {
		return 0, false
	}
	t := time.Date(ReferenceYear, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
	if t.Month() != k.Month || t.Day() != k.Day {
		return 0, false
	}
	return t.YearDay() - 1, true
}

// SlotKey returns the day at a calendar position.
func SlotKey(slot int) DayKey {
	t := time.Date(ReferenceYear, time.January, 1+slot, 0, 0, 0, 0, time.UTC)
	return DayKey{Month: t.Month(), Day: t.Day()}
}

// ParseDay parses an upstream date string and drops its year.
func ParseDay(s string) (DayKey, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayKey{Month: t.Month(), Day: t.Day()}, nil
		}
	}
	return DayKey{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// CanonicalSeries holds one value per calendar slot, Jan 1 first. The zero
// value is not valid; use NewCanonicalSeries or MapSeries.
type CanonicalSeries struct {
	values Series
}

// NewCanonicalSeries returns a series with every slot missing.
func NewCanonicalSeries() CanonicalSeries {
	values := make(Series, CalendarDays)
	for i := range values {
		values[i] = Missing()
	}
	return CanonicalSeries{values: values}
}

// Len is always CalendarDays for a valid series.
func (c CanonicalSeries) Len() int { return len(c.values) }

// At returns the value at a calendar slot, or missing when out of range.
func (c CanonicalSeries) At(slot int) float64 {
	if slot < 0 || slot >= len(c.values) {
		return Missing()
	}
	return c.values[slot]
}

// Lookup returns the value for a day and whether the day is on the calendar.
func (c CanonicalSeries) Lookup(key DayKey) (float64, bool) {
	slot, ok := key.Slot()
	if !ok {
		return Missing(), false
	}
	return c.At(slot), true
}

// Values returns a copy of the slot values.
func (c CanonicalSeries) Values() Series {
	out := make(Series, len(c.values))
	copy(out, c.values)
	return out
}

func (c CanonicalSeries) set(slot int, v float64) {
	if slot >= 0 && slot < len(c.values) {
		c.values[slot] = v
	}
}

// MarshalJSON encodes the 365 values in calendar order.
func (c CanonicalSeries) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return NewCanonicalSeries().values.MarshalJSON()
	}
	return c.values.MarshalJSON()
}

// UnmarshalJSON requires exactly CalendarDays values.
func (c *CanonicalSeries) UnmarshalJSON(data []byte) error {
	var values Series
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) != CalendarDays {
		return fmt.Errorf("canonical series has %d values, want %d", len(values), CalendarDays)
	}
	c.values = values
	return nil
}

// SeriesMapper projects raw streams onto the canonical calendar.
type SeriesMapper interface {
	Map(raw RawSeries) (CanonicalSeries, []string)
}

// CalendarMapper is the direct SeriesMapper.
type CalendarMapper struct{}

// Map implements SeriesMapper.
func (CalendarMapper) Map(raw RawSeries) (CanonicalSeries, []string) {
	return MapSeries(raw)
}

// MapSeries projects a raw stream onto the canonical calendar. The year of
// each date is discarded and a repeated month-day keeps the last value.
// Dates that fail to parse are returned as skipped; they and Feb 29 leave
// their slot missing.
func MapSeries(raw RawSeries) (CanonicalSeries, []string) {
	n := min(len(raw.Dates), len(raw.Values))
	byDay := make(map[DayKey]float64, n)
	var skipped []string
	for i := range n {
		key, err := ParseDay(raw.Dates[i])
		if err != nil {
			skipped = append(skipped, raw.Dates[i])
			continue
		}
		byDay[key] = raw.Values[i]
	}

	out := NewCanonicalSeries()
	day := time.Date(ReferenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for slot := range CalendarDays {
		if v, ok := byDay[DayKey{Month: day.Month(), Day: day.Day()}]; ok {
			out.set(slot, v)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, skipped
}
