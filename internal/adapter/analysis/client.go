// Package analysis is the HTTP client for the plan analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gptogo/lane-closure-impact/internal/domain"
)

// Client submits closure sets and driving plans to a remote analysis
// endpoint. It holds no state between calls and never retries; a failed call
// is surfaced immediately and re-invocation is the caller's decision.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an analysis service client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type analyzeRequest struct {
	Closures    []domain.ClosureAnalysisInput `json:"closures"`
	DrivingPlan string                        `json:"drivingPlan"`
}

// AnalyzePlan issues one request carrying the full closure list and the plan
// text, already prefixed with date context by the caller. A whitespace-only
// plan is rejected before any network activity. Failures classify under the
// domain error taxonomy: transport as ErrNetwork, HTTP 429 as ErrRateLimited,
// service error envelopes and unrecognizable responses as ErrAnalysisService.
func (c *Client) AnalyzePlan(ctx context.Context, closures []domain.ClosureAnalysisInput, plan string) ([]domain.ImpactedClosure, error) {
	if strings.TrimSpace(plan) == "" {
		return nil, fmt.Errorf("analyze plan: %w: driving plan is empty", domain.ErrValidation)
	}

	body, err := json.Marshal(analyzeRequest{Closures: closures, DrivingPlan: plan})
	if err != nil {
		return nil, fmt.Errorf("analyze plan: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("analyze plan: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze plan: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analyze plan: %w: read response: %v", domain.ErrNetwork, err)
	}

	switch result := classifyResponse(respBody); result.kind {
	case resultSuccess:
		return result.impacted, nil
	case resultServiceError:
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("analyze plan: %w: %s", domain.ErrRateLimited, result.message)
		}
		return nil, fmt.Errorf("analyze plan: %w: %s", domain.ErrAnalysisService, result.message)
	default:
		c.logger.Error("unexpected analysis response", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("analyze plan: %w: unexpected response format (status %d)", domain.ErrAnalysisService, resp.StatusCode)
	}
}

// resultKind tags the three shapes an analysis response can take. The
// discrimination happens once, here, instead of duck-typing fields at every
// call site.
type resultKind int

const (
	resultMalformed resultKind = iota
	resultSuccess
	resultServiceError
)

type analysisResult struct {
	kind     resultKind
	impacted []domain.ImpactedClosure
	message  string
}

func classifyResponse(body []byte) analysisResult {
	var envelope struct {
		ImpactedClosures *[]domain.ImpactedClosure `json:"impactedClosures"`
		Error            *string                   `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return analysisResult{kind: resultMalformed}
	}
	switch {
	case envelope.ImpactedClosures != nil:
		return analysisResult{kind: resultSuccess, impacted: *envelope.ImpactedClosures}
	case envelope.Error != nil:
		return analysisResult{kind: resultServiceError, message: *envelope.Error}
	default:
		return analysisResult{kind: resultMalformed}
	}
}
