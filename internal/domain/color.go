package domain

import (
	"encoding/json"
	"fmt"

	"github.com/ErikKalkoken/go-set"
)

// Palette is an ordered list of CSS colors.
type Palette []string

// Palettes are the two parallel category palettes. Comparison[i] is the
// partner of Primary[i].
type Palettes struct {
	Primary    Palette `yaml:"primary" json:"primary"`
	Comparison Palette `yaml:"comparison" json:"comparison"`
}

// GDDColors are the fixed colors of the GDD chart.
type GDDColors struct {
	Primary    string `yaml:"primary" json:"primary"`
	Comparison string `yaml:"comparison" json:"comparison"`
	Normal     string `yaml:"normal" json:"normal"`
	Band       string `yaml:"band" json:"band"`
	BandBorder string `yaml:"band_border" json:"band_border"`
	Freezing   string `yaml:"freezing" json:"freezing"`
	Analog     string `yaml:"analog" json:"analog"`
	CFS        string `yaml:"cfs" json:"cfs"`
}

// Theme is the immutable color configuration handed to the composers.
type Theme struct {
	Palettes Palettes  `yaml:"palettes" json:"palettes"`
	GDD      GDDColors `yaml:"gdd" json:"gdd"`
}

// DefaultTheme uses Paul Tol's colorblind-safe schemes: "bright" for primary
// categories and "light" for their comparison partners.
func DefaultTheme() Theme {
	return Theme{
		Palettes: Palettes{
			Primary: Palette{
				"#4477AA", "#EE6677", "#228833", "#CCBB44", "#66CCEE",
				"#AA3377", "#BBBBBB", "#EE8866", "#44BB99", "#FFAABB",
			},
			Comparison: Palette{
				"#77AADD", "#FFAABB", "#BBCC33", "#EEDD88", "#99DDFF",
				"#CC99CC", "#DDDDDD", "#FFCC99", "#AAEEDD", "#FFDDEE",
			},
		},
		GDD: GDDColors{
			Primary:    "#4477AA",
			Comparison: "#EE6677",
			Normal:     "#228833",
			Band:       "rgba(102, 204, 238, 0.3)",
			BandBorder: "rgba(255, 255, 255, 0.1)",
			Freezing:   "#66CCEE",
			Analog:     "#AA3377",
			CFS:        "#CCBB44",
		},
	}
}

// ColorTable maps category labels to one color (single-set categories) or a
// primary/comparison pair, in legend order.
type ColorTable struct {
	order  []string
	colors map[string][]string
}

func newColorTable() ColorTable {
	return ColorTable{colors: make(map[string][]string)}
}

func (t *ColorTable) set(label string, colors ...string) {
	if _, ok := t.colors[label]; !ok {
		t.order = append(t.order, label)
	}
	t.colors[label] = colors
}

// Labels returns the labels in assignment order.
func (t ColorTable) Labels() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Colors returns the colors for a label.
func (t ColorTable) Colors(label string) []string {
	return t.colors[label]
}

// Primary returns the color a label's primary curve uses.
func (t ColorTable) Primary(label string) (string, bool) {
	c := t.colors[label]
	if len(c) == 0 {
		return "", false
	}
	return c[0], true
}

// Comparison returns the color a label's comparison curve uses: the paired
// color if there is one, else the label's only color.
func (t ColorTable) Comparison(label string) (string, bool) {
	c := t.colors[label]
	switch len(c) {
	case 0:
		return "", false
	case 1:
		return c[0], true
	default:
		return c[1], true
	}
}

type colorEntry struct {
	Label  string   `json:"label"`
	Colors []string `json:"colors"`
}

// MarshalJSON encodes the table as an ordered list.
func (t ColorTable) MarshalJSON() ([]byte, error) {
	entries := make([]colorEntry, 0, len(t.order))
	for _, label := range t.order {
		entries = append(entries, colorEntry{Label: label, Colors: t.colors[label]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered list written by MarshalJSON.
func (t *ColorTable) UnmarshalJSON(data []byte) error {
	var entries []colorEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode color table: %w", err)
	}
	table := newColorTable()
	for _, e := range entries {
		table.set(e.Label, e.Colors...)
	}
	*t = table
	return nil
}

// AssignColors builds the legend color table. Without a comparison set each
// primary label takes the next primary color. With one, primary labels take
// (Primary[i], Comparison[i]) pairs and comparison-only labels continue
// along the comparison palette. Duplicate labels keep their first color.
func AssignColors(p Palettes, primary []string, comparison Option[[]string]) (ColorTable, error) {
	table := newColorTable()
	seen := set.Of[string]()
	idx := 0

	others, paired := comparison.Get()
	for _, label := range primary {
		if seen.Contains(label) {
			continue
		}
		if idx >= len(p.Primary) || (paired && idx >= len(p.Comparison)) {
			return ColorTable{}, fmt.Errorf("%w: no color left for %q", ErrPaletteExhausted, label)
		}
		if paired {
			table.set(label, p.Primary[idx], p.Comparison[idx])
		} else {
			table.set(label, p.Primary[idx])
		}
		seen.Add(label)
		idx++
	}

	for _, label := range others {
		if seen.Contains(label) {
			continue
		}
		if idx >= len(p.Comparison) {
			return ColorTable{}, fmt.Errorf("%w: no color left for %q", ErrPaletteExhausted, label)
		}
		table.set(label, p.Comparison[idx])
		seen.Add(label)
		idx++
	}
	return table, nil
}
