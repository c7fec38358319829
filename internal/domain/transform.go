package domain

import (
	"fmt"
	"time"
)

// hst is Hawaii Standard Time. Hawaii observes no daylight saving, so a
// fixed offset is exact year-round and keeps rendering independent of the
// host tz database.
var hst = time.FixedZone("HST", -10*60*60)

const (
	dateLayout     = "Monday, 1/2/2006"
	timeLayout     = "3:04 PM"
	dateTimeLayout = "Monday, 1/2/2006, 3:04 PM"

	// notAvailable is the display fallback for missing upstream values.
	// It exists only at this boundary; records keep raw optionality.
	notAvailable = "N/A"
)

// ToAnalysisInput maps a closure record to the display-ready shape the
// analysis service consumes. The mapping is total: missing values render as
// "N/A" and timestamps as human-readable HST date/times, since the consumer
// reasons over text rather than structured dates.
func ToAnalysisInput(rec ClosureRecord) ClosureAnalysisInput {
	return ClosureAnalysisInput{
		ID:            rec.ID,
		Route:         fmt.Sprintf("%s (Direction: %s)", orNA(rec.Route), orNA(rec.Direction)),
		From:          rec.FromLocation,
		To:            rec.ToLocation,
		Starts:        formatClosureTime(rec.BeginTime),
		Ends:          formatClosureTime(rec.EndTime),
		LanesAffected: lanesAffected(rec),
		Reason:        rec.ClosureReason,
		Details:       rec.Details,
		Remarks:       rec.Remarks,
	}
}

// ToAnalysisInputs maps a closure set in order.
func ToAnalysisInputs(records []ClosureRecord) []ClosureAnalysisInput {
	inputs := make([]ClosureAnalysisInput, len(records))
	for i, rec := range records {
		inputs[i] = ToAnalysisInput(rec)
	}
	return inputs
}

// PlanWithDateContext prefixes a driving plan with the current HST date and
// time so the analysis backend can reason about "now" without a clock of its
// own.
func PlanWithDateContext(plan string) string {
	now := clock.Now().In(hst)
	return fmt.Sprintf("It is currently %s at %s. Planned route: %s",
		now.Format(dateLayout), now.Format(timeLayout), plan)
}

// lanesAffected prefers the lane count when present, pluralizing above one
// lane, and falls back to the closure factor description otherwise.
func lanesAffected(rec ClosureRecord) string {
	if n := rec.NumLanesClosed; n != nil && *n > 0 {
		plural := ""
		if *n > 1 {
			plural = "s"
		}
		return fmt.Sprintf("%d Lane%s (Side: %s)", *n, plural, orNA(rec.ClosureSide))
	}
	return fmt.Sprintf("%s (Side: %s)", orNA(rec.ClosureFactor), orNA(rec.ClosureSide))
}

// formatClosureTime renders an epoch-millisecond timestamp in HST, or "N/A"
// when absent.
func formatClosureTime(ts *int64) string {
	if ts == nil || *ts == 0 {
		return notAvailable
	}
	return time.UnixMilli(*ts).In(hst).Format(dateTimeLayout)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailable
	}
	return *s
}
