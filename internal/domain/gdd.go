package domain

import "fmt"

// Overlay labels of the GDD chart.
const (
	LabelNormal      = "30 Year Normal Data"
	LabelBandLower   = "Interquantile Range Lower Boundary"
	LabelLastFreeze  = "Freezing Days"
	LabelFirstFreeze = "First Freezing Days"
	LabelGEFS        = "GEFS Data"
	LabelCFS         = "CFS Data"
)

const freezeBarThickness = 2

// YearSeries is a stream tagged with the year it was fetched for.
type YearSeries struct {
	Year   int          `json:"year"`
	Bundle SeriesBundle `json:"bundle"`
}

// GDDInput is everything the GDD composer consumes. Required streams are
// plain fields; a caller that could not fetch one must not compose.
type GDDInput struct {
	Primary     YearSeries
	Comparison  Option[YearSeries]
	Analog      Option[YearSeries]
	Normal      SeriesBundle
	Minimum     SeriesBundle
	Maximum     SeriesBundle
	FirstFreeze SeriesBundle
	LastFreeze  SeriesBundle
	GEFS        Option[SeriesBundle]
	CFS         Option[SeriesBundle]

	// ConfidenceInterval is the percentile band width, e.g. 90.
	ConfidenceInterval int
	Properties         DataProperties
	Labels             []string
	Crop               string
}

// BandLabel is the legend text of the percentile band.
func BandLabel(ci int) string {
	return fmt.Sprintf("%d%% Interquantile Range", ci)
}

// PrimaryLabel is the legend text of an observed-year curve.
func PrimaryLabel(year int) string {
	return fmt.Sprintf("GDD Data for %d", year)
}

// AnalogLabel is the legend text of the analog-year curve.
func AnalogLabel(year int) string {
	return fmt.Sprintf("GDD Data for Analog Year, %d", year)
}

// forecastOwner says which observed curve the forecast overlays extend.
type forecastOwner int

const (
	forecastNone forecastOwner = iota
	forecastPrimary
	forecastComparison
)

// GDDComposer builds growing-degree-day chart states.
type GDDComposer struct {
	colors       GDDColors
	forecastYear int
}

// NewGDDComposer creates a composer. Forecasts are drawn only for
// forecastYear, the season the forecast products cover.
func NewGDDComposer(colors GDDColors, forecastYear int) *GDDComposer {
	return &GDDComposer{colors: colors, forecastYear: forecastYear}
}

// ForecastYear is the year forecasts are drawn for.
func (c *GDDComposer) ForecastYear() int { return c.forecastYear }

// Compose builds the GDD chart state. Overlay order is fixed per branch:
//
//	[GEFS, CFS]            when the primary year is the forecast year
//	primary
//	[GEFS, CFS]            when only the comparison year is the forecast year
//	[analog]
//	[comparison]           when present and not the primary year
//	normal
//	band upper, band lower
//	last freeze, first freeze
//
// Band upper fills toward band lower, so the two are always adjacent.
func (c *GDDComposer) Compose(in GDDInput) (DatasetState, error) {
	comparison, hasComparison := in.Comparison.Get()
	hasComparison = hasComparison && comparison.Year != in.Primary.Year

	owner := c.forecastOwner(in, hasComparison, comparison)
	anchor := in.Primary
	forecastColor := c.colors.Primary
	if owner == forecastComparison {
		anchor = comparison
		forecastColor = c.colors.Comparison
	}

	state := DatasetState{
		Tool:       ToolGDD,
		Status:     StatusOK,
		Title:      gddTitle(in),
		Labels:     in.Labels,
		Scales:     Scales{Left: Some(ScaleForCrop(in.Crop)), Right: Some(FreezeScale)},
		Properties: &DataProperties{Interval: in.Properties.Interval, Coords: in.Properties.Coords},
		ComposedAt: clock.Now(),
	}
	state.Series = gddSeries(in, hasComparison)

	var forecasts []Overlay
	if owner != forecastNone {
		var day Option[DayKey]
		forecasts, day = c.forecastOverlays(in, anchor.Bundle.Initial.Mapped, forecastColor)
		state.ConnectionDay = day
	}

	var b overlayBuilder
	if owner == forecastPrimary {
		b.add(forecasts...)
	}
	b.add(c.line(RolePrimary, PrimaryLabel(in.Primary.Year), in.Primary.Bundle, c.colors.Primary, 0))
	if owner == forecastComparison {
		b.add(forecasts...)
	}
	if analog, ok := in.Analog.Get(); ok {
		b.add(c.line(RoleAnalog, AnalogLabel(analog.Year), analog.Bundle, c.colors.Analog, 2))
	}
	if hasComparison {
		b.add(c.line(RoleComparison, PrimaryLabel(comparison.Year), comparison.Bundle, c.colors.Comparison, 0))
	}
	b.add(c.line(RoleNormal, LabelNormal, in.Normal, c.colors.Normal, 2))
	b.add(c.band(in)...)
	b.pair(string(RoleMaximum), string(RoleMinimum))
	b.add(c.freezeBars(in)...)
	b.pair(string(RoleLastFreeze), string(RoleFirstFreeze))

	overlays, err := b.build()
	if err != nil {
		return DatasetState{}, fmt.Errorf("compose gdd: %w", err)
	}
	state.Overlays = overlays
	return state, nil
}

// forecastOwner decides which curve forecasts attach to. Only one branch is
// honored per composition and the primary year wins when both qualify.
func (c *GDDComposer) forecastOwner(in GDDInput, hasComparison bool, comparison YearSeries) forecastOwner {
	if !in.GEFS.IsSome() && !in.CFS.IsSome() {
		return forecastNone
	}
	switch {
	case in.Primary.Year == c.forecastYear:
		return forecastPrimary
	case hasComparison && comparison.Year == c.forecastYear:
		return forecastComparison
	default:
		return forecastNone
	}
}

func (c *GDDComposer) forecastOverlays(in GDDInput, observed CanonicalSeries, gefsColor string) ([]Overlay, Option[DayKey]) {
	var out []Overlay
	day := None[DayKey]()

	add := func(role Role, label string, fc SeriesBundle, color string) {
		o := c.line(role, label, fc, color, 0)
		o.Dash = dashed
		o.Tooltip = Tooltip{Mode: TooltipHideAtConnection, SuppressIndex: None[int]()}
		if slot, ok := ConnectionPoint(observed, fc.Initial.Mapped).Get(); ok {
			if !day.IsSome() {
				day = Some(SlotKey(slot))
			}
			if idx, ok := fc.Filtered.IndexOfSlot(slot); ok {
				o.Tooltip.SuppressIndex = Some(idx)
			}
		}
		out = append(out, o)
	}

	if gefs, ok := in.GEFS.Get(); ok {
		add(RoleGEFS, LabelGEFS, gefs, gefsColor)
	}
	if cfs, ok := in.CFS.Get(); ok {
		add(RoleCFS, LabelCFS, cfs, c.colors.CFS)
	}
	return out, day
}

func (c *GDDComposer) line(role Role, label string, b SeriesBundle, color string, width float64) Overlay {
	return Overlay{
		ID:          string(role),
		Label:       label,
		Data:        b.Filtered.Data,
		Kind:        KindLine,
		Color:       color,
		Background:  color,
		Axis:        AxisLeft,
		BorderWidth: width,
		PointRadius: Some(0.0),
		Tooltip:     Tooltip{Mode: TooltipShow},
	}
}

func (c *GDDComposer) band(in GDDInput) []Overlay {
	upper := c.line(RoleMaximum, BandLabel(in.ConfidenceInterval), in.Maximum, c.colors.BandBorder, 0)
	upper.Background = c.colors.Band
	upper.Fill = 1

	lower := c.line(RoleMinimum, LabelBandLower, in.Minimum, c.colors.BandBorder, 0)
	lower.Background = c.colors.Band
	lower.Fill = -1
	lower.LegendHidden = true
	lower.Tooltip = Tooltip{Mode: TooltipHide}

	return []Overlay{upper, lower}
}

func (c *GDDComposer) freezeBars(in GDDInput) []Overlay {
	bar := func(role Role, label string, b SeriesBundle) Overlay {
		return Overlay{
			ID:           string(role),
			Label:        label,
			Data:         b.Filtered.Data,
			Kind:         KindBar,
			Background:   c.colors.Freezing,
			Axis:         AxisRight,
			BarThickness: freezeBarThickness,
			Tooltip:      Tooltip{Mode: TooltipHideMissing},
		}
	}
	last := bar(RoleLastFreeze, LabelLastFreeze, in.LastFreeze)
	first := bar(RoleFirstFreeze, LabelFirstFreeze, in.FirstFreeze)
	first.LegendHidden = true
	return []Overlay{last, first}
}

// gddSeries lists the streams kept in the state for reuse by later calls.
func gddSeries(in GDDInput, hasComparison bool) []CategorySeries {
	series := []CategorySeries{
		{Role: RolePrimary, Year: in.Primary.Year, Bundle: in.Primary.Bundle},
	}
	if c, ok := in.Comparison.Get(); ok && hasComparison {
		series = append(series, CategorySeries{Role: RoleComparison, Year: c.Year, Bundle: c.Bundle})
	}
	if a, ok := in.Analog.Get(); ok {
		series = append(series, CategorySeries{Role: RoleAnalog, Year: a.Year, Bundle: a.Bundle})
	}
	series = append(series,
		CategorySeries{Role: RoleNormal, Bundle: in.Normal},
		CategorySeries{Role: RoleMinimum, Bundle: in.Minimum},
		CategorySeries{Role: RoleMaximum, Bundle: in.Maximum},
		CategorySeries{Role: RoleFirstFreeze, Bundle: in.FirstFreeze},
		CategorySeries{Role: RoleLastFreeze, Bundle: in.LastFreeze},
	)
	if g, ok := in.GEFS.Get(); ok {
		series = append(series, CategorySeries{Role: RoleGEFS, Bundle: g})
	}
	if f, ok := in.CFS.Get(); ok {
		series = append(series, CategorySeries{Role: RoleCFS, Bundle: f})
	}
	return series
}

func gddTitle(in GDDInput) []string {
	return []string{
		"DAWN GDD Tool for " + in.Crop,
		fmt.Sprintf("(%g, %g)", in.Properties.Coords.ClosestLat, in.Properties.Coords.ClosestLng),
	}
}
