package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Series is an ordered run of values where NaN marks a missing value.
// On the wire a missing value is encoded as null.
type Series []float64

// Missing is the sentinel for an absent value.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// MarshalJSON writes NaN and infinities as null.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null entries as missing.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode series: %w", err)
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// RawSeries is a stream as supplied by the upstream data service: parallel
// date strings and values. Dates may come from any year.
type RawSeries struct {
	Dates  []string `json:"dates"`
	Values Series   `json:"values"`
}

// Empty reports whether the stream carries no dated values.
func (r RawSeries) Empty() bool {
	return len(r.Dates) == 0 || len(r.Values) == 0
}

// FilteredSeries is a window of a CanonicalSeries with display labels.
// Offset is the calendar slot of the first element when the producer knows
// it, and Step the number of slots between elements (1 when zero). Both
// are used only to translate calendar positions into window indexes.
type FilteredSeries struct {
	Data   Series      `json:"data"`
	Dates  []string    `json:"dates"`
	Offset Option[int] `json:"offset"`
	Step   int         `json:"step,omitempty"`
}

// IndexOfSlot converts a calendar slot into an index of Data, if the window
// samples it.
func (f FilteredSeries) IndexOfSlot(slot int) (int, bool) {
	offset, ok := f.Offset.Get()
	if !ok {
		return 0, false
	}
	step := max(f.Step, 1)
	d := slot - offset
	if d < 0 || d%step != 0 {
		return 0, false
	}
	i := d / step
	if i >= len(f.Data) {
		return 0, false
	}
	return i, true
}

// InitialData is the unfiltered form of a stream: what the upstream service
// returned and its calendar projection.
type InitialData struct {
	Raw    RawSeries       `json:"raw"`
	Mapped CanonicalSeries `json:"mapped"`
}

// SeriesBundle pairs a stream's initial data with its filtered window.
// Callers may reuse a bundle across compositions that don't refetch.
type SeriesBundle struct {
	Initial  InitialData    `json:"initialData"`
	Filtered FilteredSeries `json:"filteredData"`
}
