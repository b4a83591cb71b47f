package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RawEvent is an unprocessed composition request from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is a serialized DatasetState destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Window is an inclusive date range. Only month and day are used; the
// year comes from the series being filtered.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AnalogStream is the analog year's accumulation as picked upstream.
type AnalogStream struct {
	Year int `json:"year"`
	RawSeries
}

// StageStream is one growth stage as fetched upstream.
type StageStream struct {
	Name string `json:"name"`
	RawSeries
}

// GDDStreams are the upstream streams of a GDD request.
type GDDStreams struct {
	Primary     RawSeries              `json:"primary"`
	Comparison  Option[RawSeries]      `json:"comparison"`
	Analog      Option[AnalogStream]   `json:"analog"`
	Normal      RawSeries              `json:"normal"`
	Minimum     RawSeries              `json:"minimum"`
	Maximum     RawSeries              `json:"maximum"`
	FirstFreeze RawSeries              `json:"first_freezing_dates"`
	LastFreeze  RawSeries              `json:"last_freezing_dates"`
	GEFS        Option[ForecastSeries] `json:"gefs"`
	CFS         Option[ForecastSeries] `json:"cfs"`
}

// Request asks for one chart state. ComparisonYear zero means no comparison.
type Request struct {
	RequestID          string        `json:"request_id"`
	Tool               Tool          `json:"tool"`
	Crop               string        `json:"crop"`
	Year               int           `json:"year"`
	ComparisonYear     int           `json:"comparison_year,omitempty"`
	Window             Window        `json:"window"`
	Interval           string        `json:"interval,omitempty"`
	ConfidenceInterval int           `json:"confidence_interval,omitempty"`
	Coords             Coords        `json:"coords"`
	Streams            GDDStreams    `json:"streams"`
	Stages             []StageStream `json:"stages,omitempty"`
	ComparisonStages   []StageStream `json:"comparison_stages,omitempty"`
}

// HasComparison reports whether a comparison year was asked for.
func (r Request) HasComparison() bool {
	return r.ComparisonYear != 0
}

// ParseRequest decodes a raw event into a Request. The tool may come from
// the body or, failing that, from the "tool" header.
func ParseRequest(raw RawEvent) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	if req.Tool == "" {
		req.Tool = Tool(raw.Headers["tool"])
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	if err := req.Validate(); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

// Validate checks the fields every request needs.
func (r Request) Validate() error {
	switch r.Tool {
	case ToolGDD, ToolProgress:
	default:
		return fmt.Errorf("unknown tool %q", r.Tool)
	}
	if r.Year <= 0 {
		return fmt.Errorf("invalid year %d", r.Year)
	}
	if r.ComparisonYear < 0 {
		return fmt.Errorf("invalid comparison year %d", r.ComparisonYear)
	}
	if r.Window.Start == "" || r.Window.End == "" {
		return fmt.Errorf("%w: window start and end are required", ErrMalformedDate)
	}
	return nil
}

// SerializeState marshals a state for the sink topic, keyed by request id.
func SerializeState(state DatasetState) (OutputEvent, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize dataset state: %w", err)
	}
	return OutputEvent{
		Key:   []byte(state.RequestID),
		Value: data,
		Headers: map[string]string{
			"tool":        string(state.Tool),
			"status":      string(state.Status),
			"overlays":    strconv.Itoa(len(state.Overlays)),
			"composed_at": state.ComposedAt.Format(time.RFC3339),
		},
	}, nil
}
