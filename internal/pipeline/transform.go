package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
)

const defaultConfidenceInterval = 90

// RangeFilter cuts display windows out of canonical series.
type RangeFilter interface {
	Apply(series domain.CanonicalSeries, window domain.Window, year int, interval string) (domain.FilteredSeries, error)
	Labels(window domain.Window, year int, interval string) ([]string, error)
}

// ComposeTransformer implements Transformer. It projects each upstream
// stream onto the calendar, cuts the display window and hands the bundles
// to the composer for the requested tool.
type ComposeTransformer struct {
	mapper   domain.SeriesMapper
	filter   RangeFilter
	gdd      *domain.GDDComposer
	progress *domain.ProgressComposer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a ComposeTransformer.
func NewTransformer(
	mapper domain.SeriesMapper,
	filter RangeFilter,
	theme domain.Theme,
	forecastYear int,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *ComposeTransformer {
	return &ComposeTransformer{
		mapper:   mapper,
		filter:   filter,
		gdd:      domain.NewGDDComposer(theme.GDD, forecastYear),
		progress: domain.NewProgressComposer(theme.Palettes),
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform implements Transformer.
func (t *ComposeTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	state, err := t.Compose(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeState(state)
}

// Compose builds the dataset state for one request. A required stream that
// came back empty yields the unavailable state rather than an error.
func (t *ComposeTransformer) Compose(ctx context.Context, req domain.Request) (domain.DatasetState, error) {
	if err := ctx.Err(); err != nil {
		return domain.DatasetState{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.DatasetState{}, fmt.Errorf("compose request %q: %w", req.RequestID, err)
	}
	start := time.Now()

	var state domain.DatasetState
	var err error
	switch req.Tool {
	case domain.ToolGDD:
		state, err = t.composeGDD(req)
	case domain.ToolProgress:
		state, err = t.composeProgress(req)
	}

	if errors.Is(err, domain.ErrMissingUpstreamData) {
		t.logger.Info("upstream data missing, emitting unavailable state",
			"request_id", req.RequestID, "tool", req.Tool, "reason", err)
		t.metrics.UnavailableStates.WithLabelValues(string(req.Tool)).Inc()
		state, err = domain.Unavailable(req.Tool), nil
	}
	if err != nil {
		return domain.DatasetState{}, fmt.Errorf("compose %s request %q: %w", req.Tool, req.RequestID, err)
	}

	state.RequestID = req.RequestID
	t.metrics.ComposeDuration.WithLabelValues(string(req.Tool)).Observe(time.Since(start).Seconds())
	t.metrics.OverlaysPerState.WithLabelValues(string(req.Tool)).Observe(float64(len(state.Overlays)))
	t.logger.Debug("composed state",
		"request_id", req.RequestID, "tool", req.Tool, "status", state.Status, "overlays", len(state.Overlays))
	return state, nil
}

func (t *ComposeTransformer) composeGDD(req domain.Request) (domain.DatasetState, error) {
	s := req.Streams
	required := []struct {
		name string
		raw  domain.RawSeries
	}{
		{"primary", s.Primary},
		{"normal", s.Normal},
		{"minimum", s.Minimum},
		{"maximum", s.Maximum},
		{"first_freezing_dates", s.FirstFreeze},
		{"last_freezing_dates", s.LastFreeze},
	}
	for _, r := range required {
		if r.raw.Empty() {
			return domain.DatasetState{}, fmt.Errorf("%w: %s", domain.ErrMissingUpstreamData, r.name)
		}
	}

	in := domain.GDDInput{
		Comparison:         domain.None[domain.YearSeries](),
		Analog:             domain.None[domain.YearSeries](),
		GEFS:               domain.None[domain.SeriesBundle](),
		CFS:                domain.None[domain.SeriesBundle](),
		ConfidenceInterval: req.ConfidenceInterval,
		Properties:         domain.DataProperties{Interval: intervalOrDefault(req.Interval), Coords: req.Coords},
		Crop:               req.Crop,
	}
	if in.ConfidenceInterval == 0 {
		in.ConfidenceInterval = defaultConfidenceInterval
	}

	var err error
	if in.Primary.Bundle, err = t.bundle(req, "primary", s.Primary, req.Year); err != nil {
		return domain.DatasetState{}, err
	}
	in.Primary.Year = req.Year

	if req.HasComparison() {
		comp, ok := s.Comparison.Get()
		switch {
		case ok && !comp.Empty():
			b, err := t.bundle(req, "comparison", comp, req.ComparisonYear)
			if err != nil {
				return domain.DatasetState{}, err
			}
			in.Comparison = domain.Some(domain.YearSeries{Year: req.ComparisonYear, Bundle: b})
		case req.ComparisonYear != req.Year:
			return domain.DatasetState{}, fmt.Errorf("%w: comparison", domain.ErrMissingUpstreamData)
		}
	}

	if analog, ok := s.Analog.Get(); ok {
		if analog.Empty() {
			return domain.DatasetState{}, fmt.Errorf("%w: analog", domain.ErrMissingUpstreamData)
		}
		b, err := t.bundle(req, "analog", analog.RawSeries, analog.Year)
		if err != nil {
			return domain.DatasetState{}, err
		}
		in.Analog = domain.Some(domain.YearSeries{Year: analog.Year, Bundle: b})
	}

	for _, f := range []struct {
		name string
		raw  domain.RawSeries
		dst  *domain.SeriesBundle
	}{
		{"normal", s.Normal, &in.Normal},
		{"minimum", s.Minimum, &in.Minimum},
		{"maximum", s.Maximum, &in.Maximum},
		{"first_freezing_dates", s.FirstFreeze, &in.FirstFreeze},
		{"last_freezing_dates", s.LastFreeze, &in.LastFreeze},
	} {
		if *f.dst, err = t.bundle(req, f.name, f.raw, req.Year); err != nil {
			return domain.DatasetState{}, err
		}
	}

	if err := t.attachForecasts(req, &in); err != nil {
		return domain.DatasetState{}, err
	}

	if in.Labels, err = t.filter.Labels(req.Window, req.Year, req.Interval); err != nil {
		return domain.DatasetState{}, fmt.Errorf("window labels: %w", err)
	}
	return t.gdd.Compose(in)
}

// attachForecasts maps GEFS and CFS onto the calendar for the curve they
// extend. Forecasts for any other year are ignored, as is a missing forecast.
func (t *ComposeTransformer) attachForecasts(req domain.Request, in *domain.GDDInput) error {
	fy := t.gdd.ForecastYear()
	anchor, ok := in.Primary, req.Year == fy
	if !ok {
		if comp, present := in.Comparison.Get(); present && comp.Year == fy {
			anchor, ok = comp, true
		}
	}
	if !ok {
		return nil
	}

	forecast := func(name string, opt domain.Option[domain.ForecastSeries]) (domain.Option[domain.SeriesBundle], error) {
		fc, present := opt.Get()
		if !present || fc.Empty() {
			return domain.None[domain.SeriesBundle](), nil
		}
		mapped, err := domain.MapForecast(fc, anchor.Bundle.Initial.Mapped)
		if err != nil {
			return domain.None[domain.SeriesBundle](), fmt.Errorf("map %s forecast: %w", name, err)
		}
		filtered, err := t.filter.Apply(mapped, req.Window, fy, req.Interval)
		if err != nil {
			return domain.None[domain.SeriesBundle](), fmt.Errorf("filter %s: %w", name, err)
		}
		return domain.Some(domain.SeriesBundle{
			Initial:  domain.InitialData{Mapped: mapped},
			Filtered: filtered,
		}), nil
	}

	var err error
	if in.GEFS, err = forecast("gefs", req.Streams.GEFS); err != nil {
		return err
	}
	in.CFS, err = forecast("cfs", req.Streams.CFS)
	return err
}

func (t *ComposeTransformer) composeProgress(req domain.Request) (domain.DatasetState, error) {
	primary, err := t.stageSet(req, "stages", req.Year, req.Stages)
	if err != nil {
		return domain.DatasetState{}, err
	}

	in := domain.ProgressInput{
		Primary:    primary,
		Comparison: domain.None[domain.StageSet](),
		Crop:       req.Crop,
	}
	if req.HasComparison() && req.ComparisonYear != req.Year {
		comparison, err := t.stageSet(req, "comparison_stages", req.ComparisonYear, req.ComparisonStages)
		if err != nil {
			return domain.DatasetState{}, err
		}
		in.Comparison = domain.Some(comparison)
	}

	if in.Labels, err = t.filter.Labels(req.Window, req.Year, req.Interval); err != nil {
		return domain.DatasetState{}, fmt.Errorf("window labels: %w", err)
	}
	return t.progress.Compose(in)
}

// stageSet bundles the stages of one year. Stages with no data yet are
// left out; a year with no stage data at all is missing upstream data.
func (t *ComposeTransformer) stageSet(req domain.Request, name string, year int, stages []domain.StageStream) (domain.StageSet, error) {
	set := domain.StageSet{Year: year}
	for _, st := range stages {
		stage := domain.FormatStageName(st.Name)
		if st.Empty() {
			t.logger.Debug("stage has no data yet, skipping",
				"request_id", req.RequestID, "stage", stage, "year", year)
			continue
		}
		b, err := t.bundle(req, stage, st.RawSeries, year)
		if err != nil {
			return domain.StageSet{}, err
		}
		set.Stages = append(set.Stages, domain.Stage{Name: stage, Bundle: b})
	}
	if len(set.Stages) == 0 {
		return domain.StageSet{}, fmt.Errorf("%w: %s for %d", domain.ErrMissingUpstreamData, name, year)
	}
	return set, nil
}

func (t *ComposeTransformer) bundle(req domain.Request, name string, raw domain.RawSeries, year int) (domain.SeriesBundle, error) {
	mapped, skipped := t.mapper.Map(raw)
	if len(skipped) > 0 {
		t.metrics.SkippedDates.Add(float64(len(skipped)))
		t.logger.Warn("skipped unparseable dates",
			"request_id", req.RequestID, "stream", name, "count", len(skipped), "first", skipped[0])
	}
	filtered, err := t.filter.Apply(mapped, req.Window, year, req.Interval)
	if err != nil {
		return domain.SeriesBundle{}, fmt.Errorf("filter %s: %w", name, err)
	}
	return domain.SeriesBundle{
		Initial:  domain.InitialData{Raw: raw, Mapped: mapped},
		Filtered: filtered,
	}, nil
}

func intervalOrDefault(interval string) string {
	if interval == "" {
		return "days"
	}
	return interval
}
