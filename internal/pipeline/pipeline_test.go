package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gptogo/lane-closure-impact/internal/domain"
	"github.com/gptogo/lane-closure-impact/internal/observability"
	"github.com/gptogo/lane-closure-impact/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	records []domain.ClosureRecord
	err     error
	calls   int
}

func (m *mockFetcher) FetchClosures(_ context.Context, _ string) ([]domain.ClosureRecord, error) {
	m.calls++
	return m.records, m.err
}

type mockAnalyzer struct {
	impacted []domain.ImpactedClosure
	err      error
	gotPlan  string
	gotInput []domain.ClosureAnalysisInput
	calls    int
}

func (m *mockAnalyzer) AnalyzePlan(_ context.Context, closures []domain.ClosureAnalysisInput, plan string) ([]domain.ImpactedClosure, error) {
	m.calls++
	m.gotInput = closures
	m.gotPlan = plan
	return m.impacted, m.err
}

type mockPublisher struct {
	gotIsland  string
	gotRecords []domain.ClosureRecord
	err        error
	calls      int
}

func (m *mockPublisher) PublishClosures(_ context.Context, island string, records []domain.ClosureRecord) error {
	m.calls++
	m.gotIsland = island
	m.gotRecords = records
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(f *mockFetcher, a *mockAnalyzer, p pipeline.ClosurePublisher) *pipeline.Aggregator {
	return pipeline.New(f, a, p, testLogger(), observability.NewMetricsForTesting())
}

func ptr[T any](v T) *T {
	return &v
}

func rollingClosure(id int64, begin, end int64) domain.ClosureRecord {
	return domain.ClosureRecord{
		ID:           id,
		Route:        ptr("H-1"),
		Direction:    ptr("East"),
		FromLocation: ptr("Middle St"),
		ToLocation:   ptr("Vineyard Blvd"),
		BeginTime:    ptr(begin),
		EndTime:      ptr(end),
		HoursPattern: ptr(domain.HoursPattern24),
		Island:       ptr("Oahu"),
	}
}

// --- tests ---

func TestAggregator_FetchClosures(t *testing.T) {
	t.Run("merges duplicate rolling closures end to end", func(t *testing.T) {
		fetcher := &mockFetcher{records: []domain.ClosureRecord{
			rollingClosure(10, 3000, 4000),
			rollingClosure(11, 1000, 2000),
		}}
		agg := newAggregator(fetcher, &mockAnalyzer{}, nil)

		canonical, err := agg.FetchClosures(context.Background(), "Oahu")

		require.NoError(t, err)
		require.Len(t, canonical, 1)
		assert.Equal(t, int64(11), canonical[0].ID)
		assert.Equal(t, int64(1000), *canonical[0].BeginTime)
		assert.Equal(t, int64(4000), *canonical[0].EndTime)
	})

	t.Run("returns records in canonical order", func(t *testing.T) {
		a := rollingClosure(1, 3000, 4000)
		b := rollingClosure(2, 1000, 2000)
		b.Route = ptr("H-2") // distinct group
		fetcher := &mockFetcher{records: []domain.ClosureRecord{a, b}}
		agg := newAggregator(fetcher, &mockAnalyzer{}, nil)

		canonical, err := agg.FetchClosures(context.Background(), "Oahu")

		require.NoError(t, err)
		require.Len(t, canonical, 2)
		assert.Equal(t, int64(2), canonical[0].ID)
		assert.Equal(t, int64(1), canonical[1].ID)
	})

	t.Run("rejects unknown island before fetching", func(t *testing.T) {
		fetcher := &mockFetcher{}
		agg := newAggregator(fetcher, &mockAnalyzer{}, nil)

		_, err := agg.FetchClosures(context.Background(), "Atlantis")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, fetcher.calls)
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		fetchErr := fmt.Errorf("closure query: %w: status 503", domain.ErrUpstreamData)
		pub := &mockPublisher{}
		agg := newAggregator(&mockFetcher{err: fetchErr}, &mockAnalyzer{}, pub)

		_, err := agg.FetchClosures(context.Background(), "Maui")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpstreamData)
		assert.Zero(t, pub.calls)
	})

	t.Run("publishes the canonical set", func(t *testing.T) {
		fetcher := &mockFetcher{records: []domain.ClosureRecord{
			rollingClosure(10, 3000, 4000),
			rollingClosure(11, 1000, 2000),
		}}
		pub := &mockPublisher{}
		agg := newAggregator(fetcher, &mockAnalyzer{}, pub)

		_, err := agg.FetchClosures(context.Background(), "Oahu")

		require.NoError(t, err)
		assert.Equal(t, 1, pub.calls)
		assert.Equal(t, "Oahu", pub.gotIsland)
		assert.Len(t, pub.gotRecords, 1)
	})

	t.Run("publish failure does not fail the cycle", func(t *testing.T) {
		fetcher := &mockFetcher{records: []domain.ClosureRecord{rollingClosure(1, 1000, 2000)}}
		pub := &mockPublisher{err: errors.New("broker unreachable")}
		agg := newAggregator(fetcher, &mockAnalyzer{}, pub)

		canonical, err := agg.FetchClosures(context.Background(), "Oahu")

		require.NoError(t, err)
		assert.Len(t, canonical, 1)
	})
}

func TestAggregator_AnalyzePlan(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.June, 10, 4, 30, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	closures := []domain.ClosureRecord{rollingClosure(1, 1000, 2000)}

	t.Run("transforms closures and prefixes date context", func(t *testing.T) {
		analyzer := &mockAnalyzer{impacted: []domain.ImpactedClosure{{
			ID:          1,
			Analysis:    "Expect delays on your route.",
			ImpactScore: domain.ImpactScore{Level: domain.ImpactLow, Value: 1},
		}}}
		agg := newAggregator(&mockFetcher{}, analyzer, nil)

		impacted, err := agg.AnalyzePlan(context.Background(), closures, "Waikiki to Haleiwa")

		require.NoError(t, err)
		require.Len(t, impacted, 1)
		assert.True(t, strings.HasPrefix(analyzer.gotPlan, "It is currently Monday, 6/9/2025 at 6:30 PM. Planned route: "))
		assert.True(t, strings.HasSuffix(analyzer.gotPlan, "Waikiki to Haleiwa"))
		require.Len(t, analyzer.gotInput, 1)
		assert.Equal(t, "H-1 (Direction: East)", analyzer.gotInput[0].Route)
	})

	t.Run("rejects whitespace-only plans before calling the backend", func(t *testing.T) {
		analyzer := &mockAnalyzer{}
		agg := newAggregator(&mockFetcher{}, analyzer, nil)

		_, err := agg.AnalyzePlan(context.Background(), closures, "   ")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("drops results for unknown closure ids", func(t *testing.T) {
		analyzer := &mockAnalyzer{impacted: []domain.ImpactedClosure{
			{ID: 1, Analysis: "On your route.", ImpactScore: domain.ImpactScore{Level: domain.ImpactHigh, Value: 3}},
			{ID: 999, Analysis: "Fabricated.", ImpactScore: domain.ImpactScore{Level: domain.ImpactLow, Value: 1}},
		}}
		agg := newAggregator(&mockFetcher{}, analyzer, nil)

		impacted, err := agg.AnalyzePlan(context.Background(), closures, "Waikiki to Haleiwa")

		require.NoError(t, err)
		require.Len(t, impacted, 1)
		assert.Equal(t, int64(1), impacted[0].ID)
	})

	t.Run("propagates analyzer errors", func(t *testing.T) {
		analyzer := &mockAnalyzer{err: fmt.Errorf("analyze plan: %w: quota exceeded", domain.ErrRateLimited)}
		agg := newAggregator(&mockFetcher{}, analyzer, nil)

		_, err := agg.AnalyzePlan(context.Background(), closures, "Waikiki to Haleiwa")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})
}

func TestAggregator_CheckReadiness(t *testing.T) {
	t.Run("ready when a fetcher is wired", func(t *testing.T) {
		agg := newAggregator(&mockFetcher{}, &mockAnalyzer{}, nil)
		assert.NoError(t, agg.CheckReadiness(context.Background()))
	})

	t.Run("ready without an analysis backend", func(t *testing.T) {
		agg := pipeline.New(&mockFetcher{}, nil, nil, testLogger(), observability.NewMetricsForTesting())
		assert.NoError(t, agg.CheckReadiness(context.Background()))
	})

	t.Run("not ready without a fetcher", func(t *testing.T) {
		agg := pipeline.New(nil, &mockAnalyzer{}, nil, testLogger(), observability.NewMetricsForTesting())
		assert.Error(t, agg.CheckReadiness(context.Background()))
	})
}
