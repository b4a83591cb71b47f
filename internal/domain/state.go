package domain

import "time"

// Tool names the chart a state is composed for.
type Tool string

const (
	ToolGDD      Tool = "gdd"
	ToolProgress Tool = "progress"
)

// Status of a composed state.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Role is the part a stream plays in a chart.
type Role string

const (
	RolePrimary     Role = "primary"
	RoleComparison  Role = "comparison"
	RoleAnalog      Role = "analog"
	RoleNormal      Role = "thirty_year"
	RoleMinimum     Role = "minimum"
	RoleMaximum     Role = "maximum"
	RoleFirstFreeze Role = "first_freeze"
	RoleLastFreeze  Role = "last_freeze"
	RoleGEFS        Role = "gefs"
	RoleCFS         Role = "cfs"
)

// CategorySeries is one included stream of a state. Category is the growth
// stage for the progress tool and empty for GDD streams.
type CategorySeries struct {
	Role     Role         `json:"role"`
	Category string       `json:"category,omitempty"`
	Year     int          `json:"year,omitempty"`
	Bundle   SeriesBundle `json:"bundle"`
}

// Coords is the grid point the upstream service resolved a location to.
type Coords struct {
	ClosestLat float64 `json:"closest_lat"`
	ClosestLng float64 `json:"closest_lng"`
}

// DataProperties describe how the GDD streams were fetched and filtered.
type DataProperties struct {
	Interval string `json:"interval"`
	Coords   Coords `json:"coords"`
}

// DatasetState is everything the rendering layer needs for one chart. A new
// state is built on every composition.
type DatasetState struct {
	RequestID     string           `json:"request_id,omitempty"`
	Tool          Tool             `json:"tool"`
	Status        Status           `json:"status"`
	Message       string           `json:"message,omitempty"`
	Title         []string         `json:"title,omitempty"`
	Series        []CategorySeries `json:"series"`
	Overlays      []Overlay        `json:"datasets"`
	Labels        []string         `json:"labels"`
	Colors        *ColorTable      `json:"colors,omitempty"`
	Scales        Scales           `json:"scales"`
	Properties    *DataProperties  `json:"dataProperties,omitempty"`
	ConnectionDay Option[DayKey]   `json:"connectionDay"`
	ComposedAt    time.Time        `json:"composed_at"`
}

// Unavailable builds the state shown when upstream data is missing.
func Unavailable(tool Tool) DatasetState {
	return DatasetState{
		Tool:       tool,
		Status:     StatusUnavailable,
		Message:    UnavailableMessage,
		Series:     []CategorySeries{},
		Overlays:   []Overlay{},
		Labels:     []string{},
		ComposedAt: clock.Now(),
	}
}

// Lookup returns the stream with the given role and category.
func (s DatasetState) Lookup(role Role, category string) (CategorySeries, bool) {
	for _, cs := range s.Series {
		if cs.Role == role && cs.Category == category {
			return cs, true
		}
	}
	return CategorySeries{}, false
}

// Overlay returns the overlay with the given id and its position.
func (s DatasetState) Overlay(id string) (Overlay, int, bool) {
	for i, o := range s.Overlays {
		if o.ID == id {
			return o, i, true
		}
	}
	return Overlay{}, -1, false
}
