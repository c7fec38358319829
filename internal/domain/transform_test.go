package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// 2025-06-09 18:30 HST == 2025-06-10 04:30 UTC (a Monday in Hawaii).
var testNow = time.Date(2025, time.June, 10, 4, 30, 0, 0, time.UTC)

func TestToAnalysisInput(t *testing.T) {
	t.Run("complete record", func(t *testing.T) {
		// 2025-06-09 08:00 HST and 2025-06-09 15:30 HST in epoch ms.
		begin := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC).UnixMilli()
		end := time.Date(2025, time.June, 10, 1, 30, 0, 0, time.UTC).UnixMilli()

		input := ToAnalysisInput(ClosureRecord{
			ID:             42,
			Route:          ptr("H-1"),
			Direction:      ptr("East"),
			FromLocation:   ptr("Middle St"),
			ToLocation:     ptr("Vineyard Blvd"),
			BeginTime:      &begin,
			EndTime:        &end,
			NumLanesClosed: ptr(2),
			ClosureSide:    ptr("Right"),
			ClosureReason:  ptr("Construction"),
			Details:        ptr("Expect delays."),
			Remarks:        ptr("Nightly work."),
		})

		assert.Equal(t, int64(42), input.ID)
		assert.Equal(t, "H-1 (Direction: East)", input.Route)
		assert.Equal(t, "Middle St", *input.From)
		assert.Equal(t, "Vineyard Blvd", *input.To)
		assert.Equal(t, "Monday, 6/9/2025, 8:00 AM", input.Starts)
		assert.Equal(t, "Monday, 6/9/2025, 3:30 PM", input.Ends)
		assert.Equal(t, "2 Lanes (Side: Right)", input.LanesAffected)
		assert.Equal(t, "Construction", *input.Reason)
		assert.Equal(t, "Expect delays.", *input.Details)
		assert.Equal(t, "Nightly work.", *input.Remarks)
	})

	t.Run("missing values render as N/A", func(t *testing.T) {
		input := ToAnalysisInput(ClosureRecord{ID: 7})

		assert.Equal(t, "N/A (Direction: N/A)", input.Route)
		assert.Equal(t, "N/A", input.Starts)
		assert.Equal(t, "N/A", input.Ends)
		assert.Equal(t, "N/A (Side: N/A)", input.LanesAffected)
		assert.Nil(t, input.From)
		assert.Nil(t, input.Reason)
	})

	t.Run("single lane is not pluralized", func(t *testing.T) {
		input := ToAnalysisInput(ClosureRecord{
			ID:             1,
			NumLanesClosed: ptr(1),
			ClosureSide:    ptr("Left"),
		})

		assert.Equal(t, "1 Lane (Side: Left)", input.LanesAffected)
	})

	t.Run("zero lanes falls back to closure factor", func(t *testing.T) {
		input := ToAnalysisInput(ClosureRecord{
			ID:             1,
			NumLanesClosed: ptr(0),
			ClosureFactor:  ptr("Full Closure"),
		})

		assert.Equal(t, "Full Closure (Side: N/A)", input.LanesAffected)
	})
}

func TestToAnalysisInputs_PreservesOrder(t *testing.T) {
	inputs := ToAnalysisInputs([]ClosureRecord{{ID: 3}, {ID: 1}, {ID: 2}})

	got := make([]int64, len(inputs))
	for i, in := range inputs {
		got[i] = in.ID
	}
	assert.Equal(t, []int64{3, 1, 2}, got)
}

func TestPlanWithDateContext(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(testNow))
	defer SetClock(nil)

	got := PlanWithDateContext("Drive from Waikiki to Haleiwa")

	assert.Equal(t, "It is currently Monday, 6/9/2025 at 6:30 PM. Planned route: Drive from Waikiki to Haleiwa", got)
}
