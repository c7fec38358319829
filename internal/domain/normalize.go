package domain

import (
	"strconv"
	"strings"
)

// locationSuffix marks the start of the redundant state/country tail on
// intersection names, e.g. "Kamehameha Hwy, Hawaii, USA".
const locationSuffix = ", Hawaii, "

// NormalizeClosures cleans text fields, collapses duplicate rolling-closure
// records, and returns the canonical closure set in sorted order. Inputs are
// never mutated; the result is built from fresh records. The transform is
// idempotent: normalizing an already-normalized set is a no-op.
func NormalizeClosures(raw []ClosureRecord) []ClosureRecord {
	cleaned := make([]ClosureRecord, len(raw))
	for i, rec := range raw {
		rec.Details = replaceNewlinesPtr(rec.Details)
		rec.Remarks = replaceNewlinesPtr(rec.Remarks)
		rec.FromLocation = transformLocationPtr(rec.FromLocation)
		rec.ToLocation = transformLocationPtr(rec.ToLocation)
		cleaned[i] = rec
	}

	merged := mergeDuplicateClosures(SortClosures(cleaned))
	return SortClosures(merged)
}

// ReplaceNewlinesWithPeriods joins embedded newlines into sentence
// separators, collapsing the doubled ". . " produced by lines that already
// ended in a period.
func ReplaceNewlinesWithPeriods(text string) string {
	joined := strings.ReplaceAll(text, "\n", ". ")
	return strings.ReplaceAll(joined, ".. ", ". ")
}

// TransformLocationString truncates an intersection name at the redundant
// ", Hawaii, " suffix, or returns it unchanged when the marker is absent.
func TransformLocationString(location string) string {
	if i := strings.Index(location, locationSuffix); i != -1 {
		return location[:i]
	}
	return location
}

func replaceNewlinesPtr(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := ReplaceNewlinesWithPeriods(*text)
	return &cleaned
}

func transformLocationPtr(location *string) *string {
	if location == nil {
		return nil
	}
	cleaned := TransformLocationString(*location)
	return &cleaned
}

// mergeGroupKey identifies records describing the same physical closure:
// every descriptive field participates, only identity and time range are
// excluded. Nil fields key as the empty string.
type mergeGroupKey struct {
	route     string
	direction string
	from      string
	to        string
	numLanes  string
	side      string
	factor    string
	reason    string
	details   string
	remarks   string
	hours     string
	island    string
}

func keyFor(rec ClosureRecord) mergeGroupKey {
	return mergeGroupKey{
		route:     orEmpty(rec.Route),
		direction: orEmpty(rec.Direction),
		from:      orEmpty(rec.FromLocation),
		to:        orEmpty(rec.ToLocation),
		numLanes:  intOrEmpty(rec.NumLanesClosed),
		side:      orEmpty(rec.ClosureSide),
		factor:    orEmpty(rec.ClosureFactor),
		reason:    orEmpty(rec.ClosureReason),
		details:   orEmpty(rec.Details),
		remarks:   orEmpty(rec.Remarks),
		hours:     orEmpty(rec.HoursPattern),
		island:    orEmpty(rec.Island),
	}
}

// mergeDuplicateClosures partitions records by mergeGroupKey and collapses
// each eligible group into a single record. A group merges only when it has
// more than one member and every member's hours pattern is "24Hrs"; any other
// group is emitted unmerged, since short closures routinely share descriptive
// fields across genuinely distinct events.
func mergeDuplicateClosures(records []ClosureRecord) []ClosureRecord {
	groups := make(map[mergeGroupKey][]ClosureRecord)
	keyOrder := make([]mergeGroupKey, 0, len(records))

	for _, rec := range records {
		key := keyFor(rec)
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], rec)
	}

	out := make([]ClosureRecord, 0, len(records))
	for _, key := range keyOrder {
		group := groups[key]
		if len(group) == 1 || !all24Hours(group) {
			out = append(out, group...)
			continue
		}
		out = append(out, mergeGroup(group))
	}
	return out
}

func all24Hours(group []ClosureRecord) bool {
	for _, rec := range group {
		if rec.HoursPattern == nil || *rec.HoursPattern != HoursPattern24 {
			return false
		}
	}
	return true
}

// mergeGroup builds one record from a group: the earliest non-nil begin, the
// latest non-nil end, and the highest ID (newest-wins, so the merged identity
// tracks the most recently issued source record). All other fields come from
// a representative member; they are equal across the group by construction.
func mergeGroup(group []ClosureRecord) ClosureRecord {
	merged := group[0]

	var begin, end *int64
	id := group[0].ID
	for _, rec := range group {
		if rec.BeginTime != nil && (begin == nil || *rec.BeginTime < *begin) {
			v := *rec.BeginTime
			begin = &v
		}
		if rec.EndTime != nil && (end == nil || *rec.EndTime > *end) {
			v := *rec.EndTime
			end = &v
		}
		if rec.ID > id {
			id = rec.ID
		}
	}

	merged.ID = id
	merged.BeginTime = begin
	merged.EndTime = end
	return merged
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
