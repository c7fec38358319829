package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortClosures(t *testing.T) {
	t.Run("orders by begin time ascending", func(t *testing.T) {
		out := SortClosures([]ClosureRecord{
			{ID: 1, BeginTime: ptr(int64(3000))},
			{ID: 2, BeginTime: ptr(int64(1000))},
			{ID: 3, BeginTime: ptr(int64(2000))},
		})

		assert.Equal(t, []int64{2, 3, 1}, ids(out))
	})

	t.Run("nil begin time sorts first", func(t *testing.T) {
		out := SortClosures([]ClosureRecord{
			{ID: 1, BeginTime: ptr(int64(1000))},
			{ID: 2},
		})

		assert.Equal(t, []int64{2, 1}, ids(out))
	})

	t.Run("ties break by route then from-location", func(t *testing.T) {
		begin := ptr(int64(1000))
		out := SortClosures([]ClosureRecord{
			{ID: 1, BeginTime: begin, Route: ptr("H-2"), FromLocation: ptr("A St")},
			{ID: 2, BeginTime: begin, Route: ptr("H-1"), FromLocation: ptr("B St")},
			{ID: 3, BeginTime: begin, Route: ptr("H-1"), FromLocation: ptr("A St")},
		})

		assert.Equal(t, []int64{3, 2, 1}, ids(out))
	})

	t.Run("nil route sorts before named routes on equal begins", func(t *testing.T) {
		begin := ptr(int64(1000))
		out := SortClosures([]ClosureRecord{
			{ID: 1, BeginTime: begin, Route: ptr("H-1")},
			{ID: 2, BeginTime: begin},
		})

		assert.Equal(t, []int64{2, 1}, ids(out))
	})

	t.Run("stable for fully equal keys", func(t *testing.T) {
		begin := ptr(int64(1000))
		route := ptr("H-1")
		out := SortClosures([]ClosureRecord{
			{ID: 10, BeginTime: begin, Route: route},
			{ID: 20, BeginTime: begin, Route: route},
			{ID: 30, BeginTime: begin, Route: route},
		})

		assert.Equal(t, []int64{10, 20, 30}, ids(out))
	})

	t.Run("returns a new slice", func(t *testing.T) {
		input := []ClosureRecord{
			{ID: 1, BeginTime: ptr(int64(2000))},
			{ID: 2, BeginTime: ptr(int64(1000))},
		}

		out := SortClosures(input)

		require.Equal(t, []int64{2, 1}, ids(out))
		assert.Equal(t, []int64{1, 2}, ids(input))
	})
}

func ids(records []ClosureRecord) []int64 {
	out := make([]int64, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}
