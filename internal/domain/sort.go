package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// SortClosures returns a new slice in canonical order: begin time ascending
// with nil sorting first, then route, then from-location, both lexicographic
// with nil as the empty string. The sort is stable, so upstream emission
// order never leaks into the canonical set.
func SortClosures(records []ClosureRecord) []ClosureRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, compareClosures)
	return out
}

func compareClosures(a, b ClosureRecord) int {
	if c := cmp.Compare(beginOrMin(a), beginOrMin(b)); c != 0 {
		return c
	}
	if c := strings.Compare(orEmpty(a.Route), orEmpty(b.Route)); c != 0 {
		return c
	}
	return strings.Compare(orEmpty(a.FromLocation), orEmpty(b.FromLocation))
}

func beginOrMin(rec ClosureRecord) int64 {
	if rec.BeginTime == nil {
		return math.MinInt64
	}
	return *rec.BeginTime
}
