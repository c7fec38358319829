package domain

import "errors"

// Error taxonomy for the aggregation pipeline and the analysis contract.
// Adapters wrap these sentinels with stage context via fmt.Errorf("...: %w"),
// so callers classify failures with errors.Is. Nothing in the pipeline
// retries; retry policy belongs to the caller.
var (
	// ErrNetwork marks a transport failure reaching an external service.
	ErrNetwork = errors.New("network failure")

	// ErrUpstreamData marks a feature service response carrying an error
	// envelope or a non-2xx status.
	ErrUpstreamData = errors.New("upstream data error")

	// ErrValidation marks locally detected bad input, such as an empty
	// driving plan or a malformed analysis request.
	ErrValidation = errors.New("invalid input")

	// ErrAnalysisService marks an analysis service error envelope or a
	// success response that does not match the expected shape.
	ErrAnalysisService = errors.New("analysis service error")

	// ErrRateLimited marks a quota signal from the analysis backend,
	// distinguished so callers may back off before re-invoking.
	ErrRateLimited = errors.New("analysis backend rate limited")
)
