package domain

import (
	"fmt"
	"math"
)

// LegendEntry is one row of the chart legend.
type LegendEntry struct {
	Text    string   `json:"text"`
	Overlay string   `json:"overlay"`
	Color   string   `json:"color"`
	Toggles []string `json:"toggles"`
}

// Legend lists the visible legend rows of a state in overlay order.
// Clicking a row toggles every overlay in Toggles together.
func Legend(s DatasetState) []LegendEntry {
	entries := make([]LegendEntry, 0, len(s.Overlays))
	for _, o := range s.Overlays {
		if o.LegendHidden {
			continue
		}
		text := o.Label
		if o.LegendGroup != "" {
			text = StripYear(o.Label)
		}
		color := o.Color
		if color == "" {
			color = o.Background
		}
		toggles := []string{o.ID}
		if o.PairedWith != "" {
			toggles = append(toggles, o.PairedWith)
		}
		entries = append(entries, LegendEntry{Text: text, Overlay: o.ID, Color: color, Toggles: toggles})
	}
	return entries
}

// TooltipText renders the tooltip line for one point of one overlay. It
// returns false when the value must not be shown: missing values, the band
// lower boundary (already shown with the upper one) and forecast values at
// the connection point.
func TooltipText(s DatasetState, overlay, point int) (string, bool) {
	if overlay < 0 || overlay >= len(s.Overlays) {
		return "", false
	}
	o := s.Overlays[overlay]
	if point < 0 || point >= len(o.Data) {
		return "", false
	}
	v := o.Data[point]

	switch o.Tooltip.Mode {
	case TooltipHide:
		return "", false
	case TooltipHideAtConnection:
		if idx, ok := o.Tooltip.SuppressIndex.Get(); ok && idx == point {
			return "", false
		}
	}
	if IsMissing(v) {
		return "", false
	}
	value := math.Round(v)

	switch o.ID {
	case string(RoleLastFreeze):
		return fmt.Sprintf("Last Freezing Days: %.0f", value), true
	case string(RoleMaximum):
		if lower, _, ok := s.Overlay(o.PairedWith); ok && point < len(lower.Data) && !IsMissing(lower.Data[point]) {
			return fmt.Sprintf("%s: (%.0f, %.0f)", o.Label, math.Round(lower.Data[point]), value), true
		}
	}
	return fmt.Sprintf("%s: %.0f", o.Label, value), true
}
