package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ErikKalkoken/go-set"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is one growth stage's series, e.g. "Planted" or "Silking".
type Stage struct {
	Name   string       `json:"name"`
	Bundle SeriesBundle `json:"bundle"`
}

// StageSet is the ordered stages of one year.
type StageSet struct {
	Year   int     `json:"year"`
	Stages []Stage `json:"stages"`
}

// Names returns the stage names in order.
func (s StageSet) Names() []string {
	names := make([]string, 0, len(s.Stages))
	for _, st := range s.Stages {
		names = append(names, st.Name)
	}
	return names
}

// ProgressInput is everything the crop progress composer consumes.
type ProgressInput struct {
	Primary    StageSet
	Comparison Option[StageSet]
	Labels     []string
	Crop       string
}

// FormatStageName turns upstream stage names ("DOUGH", "PLANTED") into
// display names ("Dough", "Planted").
func FormatStageName(name string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(name)))
}

// ProgressComposer builds crop progress chart states.
type ProgressComposer struct {
	palettes Palettes
}

// NewProgressComposer creates a composer that colors stages from palettes.
func NewProgressComposer(palettes Palettes) *ProgressComposer {
	return &ProgressComposer{palettes: palettes}
}

// Compose builds the crop progress state: one solid overlay per primary
// stage, then one dashed overlay per comparison stage. A comparison for the
// primary year itself is ignored.
//
// Each stage gets one legend row. Where a stage appears in both years the
// row comes from the comparison overlay and toggles both curves.
func (c *ProgressComposer) Compose(in ProgressInput) (DatasetState, error) {
	comparison, hasComparison := in.Comparison.Get()
	hasComparison = hasComparison && comparison.Year != in.Primary.Year

	primary := uniqueStages(in.Primary.Stages)
	var others []Stage
	compNames := None[[]string]()
	if hasComparison {
		others = uniqueStages(comparison.Stages)
		compNames = Some(StageSet{Stages: others}.Names())
	}

	colors, err := AssignColors(c.palettes, StageSet{Stages: primary}.Names(), compNames)
	if err != nil {
		return DatasetState{}, fmt.Errorf("compose progress: %w", err)
	}

	inComparison := set.Of[string]()
	for _, st := range others {
		inComparison.Add(st.Name)
	}

	state := DatasetState{
		Tool:       ToolProgress,
		Status:     StatusOK,
		Title:      progressTitle(in, hasComparison, comparison.Year),
		Labels:     in.Labels,
		Colors:     &colors,
		Scales:     Scales{Left: Some(ProgressScale), Right: None[AxisScale]()},
		ComposedAt: clock.Now(),
	}

	var b overlayBuilder
	for _, st := range primary {
		color, _ := colors.Primary(st.Name)
		label := st.Name
		if hasComparison {
			label = stageLabel(st.Name, in.Primary.Year)
		}
		o := stageOverlay(RolePrimary, st, label, color)
		o.LegendHidden = inComparison.Contains(st.Name)
		b.add(o)
		state.Series = append(state.Series, CategorySeries{
			Role: RolePrimary, Category: st.Name, Year: in.Primary.Year, Bundle: st.Bundle,
		})
	}

	if hasComparison {
		for _, st := range others {
			color, _ := colors.Comparison(st.Name)
			o := stageOverlay(RoleComparison, st, stageLabel(st.Name, comparison.Year), color)
			o.Dash = dashed
			b.add(o)
			b.pair(stageID(RoleComparison, st.Name), stageID(RolePrimary, st.Name))
			state.Series = append(state.Series, CategorySeries{
				Role: RoleComparison, Category: st.Name, Year: comparison.Year, Bundle: st.Bundle,
			})
		}
	}

	overlays, err := b.build()
	if err != nil {
		return DatasetState{}, fmt.Errorf("compose progress: %w", err)
	}
	state.Overlays = overlays
	if state.Series == nil {
		state.Series = []CategorySeries{}
	}
	return state, nil
}

func stageOverlay(role Role, st Stage, label, color string) Overlay {
	return Overlay{
		ID:          stageID(role, st.Name),
		Label:       label,
		Data:        st.Bundle.Filtered.Data,
		Kind:        KindLine,
		Color:       color,
		PointColor:  color,
		Axis:        AxisLeft,
		BorderWidth: 2,
		PointRadius: None[float64](),
		SpanGaps:    true,
		LegendGroup: st.Name,
		Tooltip:     Tooltip{Mode: TooltipHideMissing},
	}
}

func stageID(role Role, stage string) string {
	return string(role) + "/" + stage
}

func stageLabel(stage string, year int) string {
	return stage + " " + strconv.Itoa(year)
}

// StripYear removes the year suffix a stage label carries when two years
// are charted together.
func StripYear(label string) string {
	i := strings.LastIndexByte(label, ' ')
	if i < 0 {
		return label
	}
	if _, err := strconv.Atoi(label[i+1:]); err != nil {
		return label
	}
	return label[:i]
}

func uniqueStages(stages []Stage) []Stage {
	seen := set.Of[string]()
	out := make([]Stage, 0, len(stages))
	for _, st := range stages {
		if seen.Contains(st.Name) {
			continue
		}
		seen.Add(st.Name)
		out = append(out, st)
	}
	return out
}

func progressTitle(in ProgressInput, hasComparison bool, comparisonYear int) []string {
	subtitle := fmt.Sprintf("Displaying %d", in.Primary.Year)
	if hasComparison {
		subtitle = fmt.Sprintf("Displaying %d Compared to %d", in.Primary.Year, comparisonYear)
	}
	return []string{"DAWN Crop Progress Tool for " + in.Crop, subtitle}
}
