package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/couchcryptid/dawn-chart-composer/internal/seriescache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixtures are produced by cmd/genmock.
func readFixture(t *testing.T, name string) domain.RawEvent {
	t.Helper()
	path := filepath.Join("..", "..", "data", "mock", name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return domain.RawEvent{Value: data, Topic: "chart-compose-requests"}
}

func decodeState(t *testing.T, out domain.OutputEvent) domain.DatasetState {
	t.Helper()
	var state domain.DatasetState
	require.NoError(t, json.Unmarshal(out.Value, &state))
	return state
}

func TestComposeTransformer_GDDFixture(t *testing.T) {
	freezeClock(t)
	tr := newTestTransformer(observability.NewMetricsForTesting())

	out, err := tr.Transform(context.Background(), readFixture(t, "gdd_request.json"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fixture-gdd-2021"), out.Key)
	assert.Equal(t, "10", out.Headers["overlays"])

	state, err := tr.Compose(context.Background(), mustParse(t, readFixture(t, "gdd_request.json")))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"gefs", "cfs", "primary", "analog", "comparison",
		"thirty_year", "maximum", "minimum", "last_freeze", "first_freeze",
	}, overlayIDs(state))
	require.Len(t, state.Labels, domain.CalendarDays)
	for _, o := range state.Overlays {
		assert.Len(t, o.Data, len(state.Labels), "overlay %s", o.ID)
	}

	day, ok := state.ConnectionDay.Get()
	require.True(t, ok)
	assert.Equal(t, "Jul 15", day.String())

	gefs, gi, _ := state.Overlay("gefs")
	assert.Equal(t, domain.Some(195), gefs.Tooltip.SuppressIndex)
	_, shown := domain.TooltipText(state, gi, 195)
	assert.False(t, shown, "forecast tooltip is suppressed at the connection point")
	text, shown := domain.TooltipText(state, gi, 196)
	assert.True(t, shown)
	assert.Contains(t, text, domain.LabelGEFS)

	primary, pi, _ := state.Overlay("primary")
	assert.True(t, domain.IsMissing(primary.Data[196]), "primary ends at the last observed day")
	_, shown = domain.TooltipText(state, pi, 300)
	assert.False(t, shown)

	// Feb 29 of the leap comparison year has no slot.
	comparison, _, _ := state.Overlay("comparison")
	assert.False(t, domain.IsMissing(comparison.Data[58]))
	assert.False(t, domain.IsMissing(comparison.Data[59]))

	_, li, _ := state.Overlay("minimum")
	_, shown = domain.TooltipText(state, li, 100)
	assert.False(t, shown, "band lower boundary is never shown on its own")
}

func TestComposeTransformer_ProgressFixture(t *testing.T) {
	freezeClock(t)
	tr := newTestTransformer(observability.NewMetricsForTesting())

	out, err := tr.Transform(context.Background(), readFixture(t, "progress_request.json"))
	require.NoError(t, err)
	state := decodeState(t, out)

	assert.Equal(t, domain.StatusOK, state.Status)
	require.Len(t, state.Overlays, 13)

	var primaries, comparisons int
	for _, o := range state.Overlays {
		switch {
		case o.Dash != nil:
			comparisons++
		default:
			primaries++
			assert.True(t, o.LegendHidden, "every primary stage also has a comparison curve: %s", o.ID)
		}
	}
	assert.Equal(t, 6, primaries, "harvested has no data yet")
	assert.Equal(t, 7, comparisons)

	legend := domain.Legend(state)
	require.Len(t, legend, 7)
	assert.Equal(t, "Planted", legend[0].Text)
	assert.ElementsMatch(t, []string{"comparison/Planted", "primary/Planted"}, legend[0].Toggles)
	assert.Equal(t, []string{"comparison/Harvested"}, legend[6].Toggles)

	require.NotNil(t, state.Colors)
	assert.Len(t, state.Colors.Colors("Planted"), 2)
	assert.Len(t, state.Colors.Colors("Harvested"), 1)
}

func TestComposeTransformer_FixturesThroughCache(t *testing.T) {
	freezeClock(t)
	metrics := observability.NewMetricsForTesting()
	tr := newTestTransformerWithMapper(seriescache.NewCachedMapper(domain.CalendarMapper{}, 64, metrics), metrics)
	direct := newTestTransformer(observability.NewMetricsForTesting())

	for _, name := range []string{"gdd_request.json", "progress_request.json"} {
		t.Run(name, func(t *testing.T) {
			raw := readFixture(t, name)

			want, err := direct.Transform(context.Background(), raw)
			require.NoError(t, err)
			first, err := tr.Transform(context.Background(), raw)
			require.NoError(t, err)
			second, err := tr.Transform(context.Background(), raw)
			require.NoError(t, err)

			assert.JSONEq(t, string(want.Value), string(first.Value))
			assert.JSONEq(t, string(first.Value), string(second.Value))
		})
	}
}

func mustParse(t *testing.T, raw domain.RawEvent) domain.Request {
	t.Helper()
	req, err := domain.ParseRequest(raw)
	require.NoError(t, err)
	return req
}
