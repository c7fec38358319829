package domain

// ClosureRecord is one physical lane closure event from the HDOT feed.
// Every field except ID reflects a nullable upstream attribute, so optional
// fields are pointers; display fallbacks like "N/A" are applied only at the
// analysis-input boundary, never stored here.
type ClosureRecord struct {
	ID             int64   `json:"id"`
	Route          *string `json:"route"`
	Direction      *string `json:"direction"`
	FromLocation   *string `json:"fromLocation"`
	ToLocation     *string `json:"toLocation"`
	BeginTime      *int64  `json:"beginTime"` // epoch milliseconds UTC
	EndTime        *int64  `json:"endTime"`   // epoch milliseconds UTC
	NumLanesClosed *int    `json:"numLanesClosed"`
	ClosureSide    *string `json:"closureSide"`
	ClosureFactor  *string `json:"closureFactor"` // closure type when lane count is absent
	ClosureReason  *string `json:"closureReason"`
	Details        *string `json:"details"`
	Remarks        *string `json:"remarks"`
	HoursPattern   *string `json:"hoursPattern"` // "24Hrs" marks rolling closures eligible for merging
	Island         *string `json:"island"`
}

// HoursPattern24 is the upstream sentinel for rolling 24-hour closures.
// Only groups where every member carries it are merged.
const HoursPattern24 = "24Hrs"

// ClosureAnalysisInput is the minimal display-ready shape submitted to the
// analysis service. Field names and JSON keys are part of the service
// contract. The mapping from ClosureRecord is one-way; nothing reconstructs
// a record from it.
type ClosureAnalysisInput struct {
	ID            int64   `json:"id"`
	Route         string  `json:"Route"`
	From          *string `json:"From"`
	To            *string `json:"To"`
	Starts        string  `json:"Starts"`
	Ends          string  `json:"Ends"`
	LanesAffected string  `json:"LanesAffected"`
	Reason        *string `json:"Reason"`
	Details       *string `json:"Details"`
	Remarks       *string `json:"Remarks"`
}

// ImpactLevel is the categorical half of an impact score.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "Low"
	ImpactMedium ImpactLevel = "Medium"
	ImpactHigh   ImpactLevel = "High"
	ImpactSevere ImpactLevel = "Severe"
)

// Value returns the numeric pairing for the level (Low=1 through Severe=4),
// or 0 for an unrecognized level.
func (l ImpactLevel) Value() int {
	switch l {
	case ImpactLow:
		return 1
	case ImpactMedium:
		return 2
	case ImpactHigh:
		return 3
	case ImpactSevere:
		return 4
	default:
		return 0
	}
}

// ImpactScore rates how strongly a closure affects a driving plan.
type ImpactScore struct {
	Level ImpactLevel `json:"level"`
	Value int         `json:"value"`
}

// ImpactedClosure is the analysis result for one closure. ID refers back to
// a ClosureRecord in the submitted set; Analysis is self-contained prose that
// never mentions the ID.
type ImpactedClosure struct {
	ID          int64       `json:"id"`
	Analysis    string      `json:"analysis"`
	ImpactScore ImpactScore `json:"impactScore"`
}

// Islands lists the valid island partitions of the HDOT feed.
var Islands = []string{"Oahu", "Maui", "Hawaii", "Kauai", "Molokai", "Lanai"}

// ValidIsland reports whether island names a known feed partition.
func ValidIsland(island string) bool {
	for _, v := range Islands {
		if island == v {
			return true
		}
	}
	return false
}
