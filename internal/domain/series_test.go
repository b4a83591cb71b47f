package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesJSON(t *testing.T) {
	data, err := json.Marshal(Series{1.5, Missing(), math.Inf(1), 0})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null,null,0]`, string(data))

	data, err = json.Marshal(Series(nil))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var s Series
	require.NoError(t, json.Unmarshal([]byte(`[null, 2, null]`), &s))
	require.Len(t, s, 3)
	assert.True(t, IsMissing(s[0]))
	assert.Equal(t, 2.0, s[1])
	assert.True(t, IsMissing(s[2]))

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &s))
}

func TestRawSeries_Empty(t *testing.T) {
	assert.True(t, RawSeries{}.Empty())
	assert.True(t, RawSeries{Dates: []string{"2021-01-01"}}.Empty())
	assert.False(t, RawSeries{Dates: []string{"2021-01-01"}, Values: Series{1}}.Empty())
}

func TestFilteredSeries_IndexOfSlot(t *testing.T) {
	daily := FilteredSeries{Data: make(Series, 10), Offset: Some(100)}
	weekly := FilteredSeries{Data: make(Series, 4), Offset: Some(3), Step: 7}

	tests := []struct {
		name   string
		series FilteredSeries
		slot   int
		want   int
		ok     bool
	}{
		{"first daily slot", daily, 100, 0, true},
		{"last daily slot", daily, 109, 9, true},
		{"before window", daily, 99, 0, false},
		{"after window", daily, 110, 0, false},
		{"weekly sampled slot", weekly, 17, 2, true},
		{"weekly skipped slot", weekly, 18, 0, false},
		{"weekly past end", weekly, 31, 0, false},
		{"unknown offset", FilteredSeries{Data: make(Series, 3)}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.series.IndexOfSlot(tt.slot)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
