package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is how an overlay is drawn.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Axis ids understood by the rendering layer.
const (
	AxisLeft  = "Left Scale"
	AxisRight = "Right Scale"
)

// Fill is a relative fill target: +1 fills toward the next overlay, -1
// toward the previous one, 0 means no fill. It encodes as "+1", "-1" or false.
type Fill int

// MarshalJSON implements json.Marshaler.
func (f Fill) MarshalJSON() ([]byte, error) {
	switch {
	case f == 0:
		return []byte("false"), nil
	case f > 0:
		return json.Marshal("+" + strconv.Itoa(int(f)))
	default:
		return json.Marshal(strconv.Itoa(int(f)))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fill) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil //nolint:nilerr // false and null both mean no fill
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("decode fill %q: %w", s, err)
	}
	*f = Fill(n)
	return nil
}

// TooltipMode tells the rendering layer when to omit an overlay's value.
type TooltipMode string

const (
	TooltipShow             TooltipMode = "show"
	TooltipHideMissing      TooltipMode = "hide_missing"
	TooltipHide             TooltipMode = "hide"
	TooltipHideAtConnection TooltipMode = "hide_at_connection"
)

// Tooltip is an overlay's tooltip policy. SuppressIndex is the data index
// of the forecast connection point for TooltipHideAtConnection.
type Tooltip struct {
	Mode          TooltipMode `json:"mode"`
	SuppressIndex Option[int] `json:"suppressIndex"`
}

// Overlay is one renderable series with its style and legend metadata.
type Overlay struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Data         Series          `json:"data"`
	Kind         Kind            `json:"type"`
	Color        string          `json:"borderColor,omitempty"`
	Background   string          `json:"backgroundColor,omitempty"`
	PointColor   string          `json:"pointBackgroundColor,omitempty"`
	Dash         []float64       `json:"borderDash,omitempty"`
	Fill         Fill            `json:"fill"`
	Axis         string          `json:"yAxisID"`
	BorderWidth  float64         `json:"borderWidth,omitempty"`
	PointRadius  Option[float64] `json:"pointRadius"`
	BarThickness float64         `json:"barThickness,omitempty"`
	SpanGaps     bool            `json:"spanGaps"`

	// PairedWith is the overlay toggled together with this one when its
	// legend entry is clicked.
	PairedWith   string  `json:"pairedWith,omitempty"`
	LegendHidden bool    `json:"legendHidden"`
	LegendGroup  string  `json:"legendGroup,omitempty"`
	Tooltip      Tooltip `json:"tooltip"`
}

// dashed is the dash pattern of comparison and forecast curves.
var dashed = []float64{3, 1.5}

// overlayBuilder assembles overlays in a declared order. Groups are appended
// whole; pairing and fill adjacency are checked when the list is built.
type overlayBuilder struct {
	overlays []Overlay
	pairs    [][2]string
}

func (b *overlayBuilder) add(group ...Overlay) {
	b.overlays = append(b.overlays, group...)
}

// pair links two overlays so either legend entry toggles both.
func (b *overlayBuilder) pair(leader, follower string) {
	b.pairs = append(b.pairs, [2]string{leader, follower})
}

func (b *overlayBuilder) build() ([]Overlay, error) {
	index := make(map[string]int, len(b.overlays))
	for i, o := range b.overlays {
		if _, dup := index[o.ID]; dup {
			return nil, fmt.Errorf("duplicate overlay id %q", o.ID)
		}
		index[o.ID] = i
	}

	out := make([]Overlay, len(b.overlays))
	copy(out, b.overlays)

	for _, p := range b.pairs {
		li, lok := index[p[0]]
		fi, fok := index[p[1]]
		if !lok || !fok {
			continue
		}
		out[li].PairedWith = p[1]
		out[fi].PairedWith = p[0]
	}

	for i, o := range out {
		if o.Fill == 0 {
			continue
		}
		target := i + int(o.Fill)
		if target < 0 || target >= len(out) {
			return nil, fmt.Errorf("overlay %q fills toward missing position %d", o.ID, target)
		}
		if out[target].PairedWith != o.ID && o.PairedWith != out[target].ID {
			return nil, fmt.Errorf("overlay %q fills toward unpaired overlay %q", o.ID, out[target].ID)
		}
	}
	return out, nil
}
