package domain

import "math"

// ForecastSeries is a forecast as issued upstream: values at relative day
// offsets from the issuance base date. Without explicit offsets the i-th
// value is taken to fall i+1 days after the base date.
type ForecastSeries struct {
	BaseDate string `json:"base_date"`
	Offsets  []int  `json:"offsets,omitempty"`
	Values   Series `json:"values"`
}

// Empty reports whether the forecast carries no values.
func (f ForecastSeries) Empty() bool {
	return len(f.Values) == 0
}

// ConnectionValue is the most recent observed value at or before the slot,
// which is where a forecast picks up from the observed curve.
func ConnectionValue(observed CanonicalSeries, slot int) (float64, bool) {
	for s := min(slot, observed.Len()-1); s >= 0; s-- {
		if v := observed.At(s); !IsMissing(v) {
			return v, true
		}
	}
	return Missing(), false
}

// MapForecast shifts a forecast onto the canonical calendar. The base date
// slot carries the connection value from observed so the forecast curve
// starts where the observed one ends. Values landing past Dec 31 are dropped.
func MapForecast(fc ForecastSeries, observed CanonicalSeries) (CanonicalSeries, error) {
	out := NewCanonicalSeries()
	base, err := ParseDay(fc.BaseDate)
	if err != nil {
		return out, err
	}
	baseSlot, ok := base.Slot()
	if !ok {
		// Feb 29 issuance: anchor on Feb 28.
		baseSlot, _ = DayKey{Month: base.Month, Day: 28}.Slot()
	}

	if v, ok := ConnectionValue(observed, baseSlot); ok {
		out.set(baseSlot, v)
	}
	for i, v := range fc.Values {
		offset := i + 1
		if i < len(fc.Offsets) {
			offset = fc.Offsets[i]
		}
		slot := baseSlot + offset
		if slot < 0 || slot >= CalendarDays {
			continue
		}
		out.set(slot, v)
	}
	return out, nil
}

// ConnectionPoint finds the earliest calendar slot where the forecast and
// the observed series are both present and equal after rounding to the
// nearest integer. That point is drawn once and its forecast tooltip value
// is suppressed.
func ConnectionPoint(observed, forecast CanonicalSeries) Option[int] {
	n := min(observed.Len(), forecast.Len())
	for slot := range n {
		o, f := observed.At(slot), forecast.At(slot)
		if IsMissing(o) || IsMissing(f) {
			continue
		}
		if math.Round(o) == math.Round(f) {
			return Some(slot)
		}
	}
	return None[int]()
}

// IsConnectionValue reports whether a rounded tooltip value equals the
// observed value at the connection point.
func IsConnectionValue(value float64, observed CanonicalSeries, point Option[int]) bool {
	slot, ok := point.Get()
	if !ok {
		return false
	}
	o := observed.At(slot)
	return !IsMissing(o) && math.Round(o) == math.Round(value)
}
