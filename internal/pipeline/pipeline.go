// Package pipeline orchestrates the closure aggregation cycle and plan
// analysis: fetch, normalize, sort, optionally publish, and submit the
// canonical set for impact scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gptogo/lane-closure-impact/internal/domain"
	"github.com/gptogo/lane-closure-impact/internal/observability"
)

// ClosureFetcher retrieves raw closure records for one island partition.
type ClosureFetcher interface {
	FetchClosures(ctx context.Context, island string) ([]domain.ClosureRecord, error)
}

// PlanAnalyzer scores a closure set against a driving plan. Implemented by
// the Gemini engine locally and by the analysis HTTP client when analysis is
// delegated to a remote deployment.
type PlanAnalyzer interface {
	AnalyzePlan(ctx context.Context, closures []domain.ClosureAnalysisInput, plan string) ([]domain.ImpactedClosure, error)
}

// ClosurePublisher forwards canonical closure sets to a downstream sink.
type ClosurePublisher interface {
	PublishClosures(ctx context.Context, island string, records []domain.ClosureRecord) error
}

// Aggregator is the single-flight coordinator for both operations. Each call
// receives its full input and returns a freshly built result; nothing is
// cached between invocations, and no retries happen here.
type Aggregator struct {
	fetcher   ClosureFetcher
	analyzer  PlanAnalyzer
	publisher ClosurePublisher // nil when publishing is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an Aggregator. Pass a nil publisher to disable publishing.
func New(fetcher ClosureFetcher, analyzer PlanAnalyzer, publisher ClosurePublisher, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		fetcher:   fetcher,
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the aggregator can serve traffic. Only the
// fetcher is required: a deployment without an analysis backend still serves
// the closures endpoint, and the analyze routes answer with a configuration
// error of their own.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if a.fetcher == nil {
		return errors.New("closure fetcher is not wired")
	}
	return nil
}

// FetchClosures runs one fetch-and-normalize cycle for an island and returns
// the canonical closure set: deduplicated, deterministically ordered, built
// fresh on every call. When a publisher is configured the set is also
// forwarded downstream; publish failures are logged but never fail the cycle.
func (a *Aggregator) FetchClosures(ctx context.Context, island string) ([]domain.ClosureRecord, error) {
	if !domain.ValidIsland(island) {
		return nil, fmt.Errorf("fetch closures: %w: unknown island %q", domain.ErrValidation, island)
	}

	start := time.Now()
	raw, err := a.fetcher.FetchClosures(ctx, island)
	if err != nil {
		a.metrics.FetchRequests.WithLabelValues(fetchOutcome(err)).Inc()
		return nil, err
	}
	a.metrics.FetchRequests.WithLabelValues("success").Inc()
	a.metrics.ClosuresFetched.Add(float64(len(raw)))

	canonical := domain.NormalizeClosures(raw)
	a.metrics.ClosuresMerged.Add(float64(len(raw) - len(canonical)))
	a.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	a.logger.Info("closures fetched",
		"island", island,
		"raw_count", len(raw),
		"canonical_count", len(canonical),
	)

	if a.publisher != nil {
		if err := a.publisher.PublishClosures(ctx, island, canonical); err != nil {
			a.logger.Warn("publish canonical closures failed", "island", island, "error", err)
		}
	}
	return canonical, nil
}

// AnalyzePlan validates the plan, prefixes it with the current date context,
// transforms the closures to their analysis shape, and submits one analysis
// request. Returned ids that do not correspond to a submitted closure are
// dropped; the analysis backend does not guarantee id correlation.
func (a *Aggregator) AnalyzePlan(ctx context.Context, closures []domain.ClosureRecord, plan string) ([]domain.ImpactedClosure, error) {
	trimmed := strings.TrimSpace(plan)
	if trimmed == "" {
		a.metrics.AnalysisRequests.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("analyze plan: %w: driving plan is empty", domain.ErrValidation)
	}

	inputs := domain.ToAnalysisInputs(closures)
	planWithContext := domain.PlanWithDateContext(trimmed)

	impacted, err := a.analyzer.AnalyzePlan(ctx, inputs, planWithContext)
	a.metrics.AnalysisRequests.WithLabelValues(analysisOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	return a.dropUnknownIDs(closures, impacted), nil
}

// dropUnknownIDs guards the trust boundary with the analysis backend: only
// results whose id matches a submitted closure survive.
func (a *Aggregator) dropUnknownIDs(closures []domain.ClosureRecord, impacted []domain.ImpactedClosure) []domain.ImpactedClosure {
	known := make(map[int64]struct{}, len(closures))
	for _, rec := range closures {
		known[rec.ID] = struct{}{}
	}

	kept := make([]domain.ImpactedClosure, 0, len(impacted))
	for _, ic := range impacted {
		if _, ok := known[ic.ID]; !ok {
			a.logger.Warn("dropping analysis result for unknown closure id", "id", ic.ID)
			continue
		}
		kept = append(kept, ic)
	}
	return kept
}

func fetchOutcome(err error) string {
	if errors.Is(err, domain.ErrNetwork) {
		return "network_error"
	}
	return "upstream_error"
}

func analysisOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation_error"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	default:
		return "service_error"
	}
}
