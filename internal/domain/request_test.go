package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRequestID = "req-123"

func TestParseRequest(t *testing.T) {
	t.Run("gdd request", func(t *testing.T) {
		data := []byte(`{
			"request_id": "req-123",
			"tool": "gdd",
			"crop": "Corn",
			"year": 2021,
			"comparison_year": 2019,
			"window": {"start": "01-01", "end": "12-31"},
			"confidence_interval": 90,
			"coords": {"closest_lat": 42.5, "closest_lng": -93.25},
			"streams": {
				"primary": {"dates": ["2021-01-01", "2021-01-02"], "values": [1, null]},
				"comparison": {"dates": ["2019-01-01"], "values": [2]},
				"analog": {"year": 2012, "dates": ["2012-01-01"], "values": [3]},
				"gefs": {"base_date": "2021-04-11", "values": [300, 310]}
			}
		}`)

		req, err := ParseRequest(RawEvent{Value: data})
		require.NoError(t, err)

		assert.Equal(t, testRequestID, req.RequestID)
		assert.Equal(t, ToolGDD, req.Tool)
		assert.Equal(t, 2021, req.Year)
		assert.True(t, req.HasComparison())
		assert.Equal(t, Window{Start: "01-01", End: "12-31"}, req.Window)
		assert.Equal(t, 42.5, req.Coords.ClosestLat)

		require.Len(t, req.Streams.Primary.Values, 2)
		assert.True(t, math.IsNaN(req.Streams.Primary.Values[1]))

		comparison, ok := req.Streams.Comparison.Get()
		require.True(t, ok)
		assert.Equal(t, []string{"2019-01-01"}, comparison.Dates)

		analog, ok := req.Streams.Analog.Get()
		require.True(t, ok)
		assert.Equal(t, 2012, analog.Year)
		assert.Equal(t, Series{3}, analog.Values)

		gefs, ok := req.Streams.GEFS.Get()
		require.True(t, ok)
		assert.Equal(t, "2021-04-11", gefs.BaseDate)
		assert.False(t, req.Streams.CFS.IsSome())
	})

	t.Run("progress request", func(t *testing.T) {
		data := []byte(`{
			"tool": "progress",
			"crop": "Corn",
			"year": 2021,
			"window": {"start": "2021-04-01", "end": "2021-10-31"},
			"stages": [{"name": "PLANTED", "dates": ["2021-04-01"], "values": [5]}]
		}`)

		req, err := ParseRequest(RawEvent{Key: []byte("key-1"), Value: data})
		require.NoError(t, err)

		assert.Equal(t, ToolProgress, req.Tool)
		assert.Equal(t, "key-1", req.RequestID)
		assert.False(t, req.HasComparison())
		require.Len(t, req.Stages, 1)
		assert.Equal(t, "PLANTED", req.Stages[0].Name)
		assert.Equal(t, Series{5}, req.Stages[0].Values)
	})

	t.Run("tool from header", func(t *testing.T) {
		data := []byte(`{"year": 2021, "window": {"start": "01-01", "end": "01-31"}}`)

		req, err := ParseRequest(RawEvent{Value: data, Headers: map[string]string{"tool": "progress"}})
		require.NoError(t, err)
		assert.Equal(t, ToolProgress, req.Tool)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRequest(RawEvent{Value: []byte("{invalid json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse request")
	})

	t.Run("unknown tool", func(t *testing.T) {
		data := []byte(`{"tool": "yield", "year": 2021, "window": {"start": "01-01", "end": "01-31"}}`)
		_, err := ParseRequest(RawEvent{Value: data})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})

	t.Run("missing year", func(t *testing.T) {
		data := []byte(`{"tool": "gdd", "window": {"start": "01-01", "end": "01-31"}}`)
		_, err := ParseRequest(RawEvent{Value: data})
		require.Error(t, err)
	})

	t.Run("missing window", func(t *testing.T) {
		data := []byte(`{"tool": "gdd", "year": 2021}`)
		_, err := ParseRequest(RawEvent{Value: data})
		require.ErrorIs(t, err, ErrMalformedDate)
	})
}

func TestSerializeState(t *testing.T) {
	fixedTime := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("composed state", func(t *testing.T) {
		state, err := NewProgressComposer(testPalettes).Compose(ProgressInput{
			Primary: StageSet{Year: 2021, Stages: []Stage{stage("Emerged", 10, math.NaN(), 30)}},
		})
		require.NoError(t, err)
		state.RequestID = testRequestID
		state.ComposedAt = fixedTime

		result, err := SerializeState(state)
		require.NoError(t, err)

		assert.Equal(t, []byte(testRequestID), result.Key)
		assert.Equal(t, "progress", result.Headers["tool"])
		assert.Equal(t, "ok", result.Headers["status"])
		assert.Equal(t, "1", result.Headers["overlays"])
		assert.Equal(t, "2021-05-01T12:00:00Z", result.Headers["composed_at"])

		var decoded struct {
			Datasets []struct {
				Label string     `json:"label"`
				Data  []*float64 `json:"data"`
			} `json:"datasets"`
		}
		require.NoError(t, json.Unmarshal(result.Value, &decoded))
		require.Len(t, decoded.Datasets, 1)
		assert.Equal(t, "Emerged", decoded.Datasets[0].Label)
		assert.Nil(t, decoded.Datasets[0].Data[1])
	})

	t.Run("unavailable state", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		result, err := SerializeState(Unavailable(ToolGDD))
		require.NoError(t, err)

		assert.Empty(t, result.Key)
		assert.Equal(t, "unavailable", result.Headers["status"])
		assert.Equal(t, "0", result.Headers["overlays"])

		var decoded DatasetState
		require.NoError(t, json.Unmarshal(result.Value, &decoded))
		assert.Equal(t, UnavailableMessage, decoded.Message)
		assert.Empty(t, decoded.Overlays)
		assert.Equal(t, fixedTime, decoded.ComposedAt)
	})
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		assert.Equal(t, fixedTime, Unavailable(ToolGDD).ComposedAt)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
	})
}

func TestOption(t *testing.T) {
	t.Run("absent encodes as null", func(t *testing.T) {
		data, err := json.Marshal(None[int]())
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("present round trip", func(t *testing.T) {
		data, err := json.Marshal(Some(7))
		require.NoError(t, err)

		var decoded Option[int]
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, Some(7), decoded)
		assert.Equal(t, 7, decoded.OrElse(0))
	})

	t.Run("null decodes as absent", func(t *testing.T) {
		decoded := Some(3)
		require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
		assert.False(t, decoded.IsSome())
		assert.Equal(t, 9, decoded.OrElse(9))
	})
}
