package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

func newTestAnalysis(id string, premium bool) *StoredAnalysis {
	now := time.Now().UTC()
	return &StoredAnalysis{
		ID:        id,
		AccountID: "acct-1",
		URL:       "https://example.com/",
		Result: &analyzer.AnalysisResult{
			URL:          "https://example.com/",
			OverallScore: 70,
		},
		Quota:     NewQuota(premium),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	s, err := NewFileStore(tempDir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.PutAnalysis(ctx, newTestAnalysis("a1", false)); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		got, err := s.GetAnalysis(ctx, "a1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Quota.RemainingCompetitorUpdates != FreeUpdateLimit {
			t.Errorf("expected seeded quota %d, got %d", FreeUpdateLimit, got.Quota.RemainingCompetitorUpdates)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := s.GetAnalysis(ctx, "nope"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CompetitorUpdateDecrementsByOne", func(t *testing.T) {
		s.PutAnalysis(ctx, newTestAnalysis("a2", false))

		competitors := []analyzer.CompetitorEntry{
			{URL: "https://one.example/", Result: &analyzer.AnalysisResult{OverallScore: 50}},
			{URL: "https://two.example/", Result: &analyzer.AnalysisResult{OverallScore: 60}},
		}
		updated, err := s.ApplyCompetitorUpdate(ctx, "a2", competitors, ai.Usage{}, false)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if updated.Quota.RemainingCompetitorUpdates != FreeUpdateLimit-1 {
			t.Errorf("expected quota %d, got %d", FreeUpdateLimit-1, updated.Quota.RemainingCompetitorUpdates)
		}
		if len(updated.Competitors) != 2 {
			t.Errorf("expected 2 competitors, got %d", len(updated.Competitors))
		}
		// The keyword counter is independent.
		if updated.Quota.RemainingKeywordUpdates != FreeUpdateLimit {
			t.Errorf("keyword quota should be untouched, got %d", updated.Quota.RemainingKeywordUpdates)
		}
	})

	t.Run("QuotaExceeded", func(t *testing.T) {
		a := newTestAnalysis("a3", false)
		a.Quota.RemainingCompetitorUpdates = 0
		s.PutAnalysis(ctx, a)

		if _, err := s.ApplyCompetitorUpdate(ctx, "a3", nil, ai.Usage{}, false); err != ErrQuotaExceeded {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("PremiumBypassesQuota", func(t *testing.T) {
		a := newTestAnalysis("a4", true)
		a.Quota.RemainingCompetitorUpdates = 0
		s.PutAnalysis(ctx, a)

		if _, err := s.ApplyCompetitorUpdate(ctx, "a4", nil, ai.Usage{}, true); err != nil {
			t.Errorf("premium update should pass, got %v", err)
		}
	})

	t.Run("KeywordUpdateMergesUsage", func(t *testing.T) {
		s.PutAnalysis(ctx, newTestAnalysis("a5", false))

		keywords := []ai.KeywordMetric{{Keyword: "seo analyse", SearchVolume: 900}}
		updated, err := s.ApplyKeywordUpdate(ctx, "a5", keywords, ai.Usage{TokensUsed: 150, CostUSD: 0.0003}, false)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if updated.Result.Usage.TokensUsed != 150 {
			t.Errorf("expected usage merged, got %+v", updated.Result.Usage)
		}
		if updated.Quota.RemainingKeywordUpdates != FreeUpdateLimit-1 {
			t.Errorf("expected quota %d, got %d", FreeUpdateLimit-1, updated.Quota.RemainingKeywordUpdates)
		}
	})

	t.Run("ShutdownFlushesPendingWrites", func(t *testing.T) {
		// The background writer batches writes, so the reload only sees the
		// analysis if Shutdown flushed it.
		if err := s.Shutdown(); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
		reloaded, err := NewFileStore(tempDir)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		if _, err := reloaded.GetAnalysis(ctx, "a1"); err != nil {
			t.Errorf("expected a1 after reload, got %v", err)
		}
	})

	t.Run("GetReturnsIsolatedCopy", func(t *testing.T) {
		a := newTestAnalysis("a7", false)
		a.Competitors = []analyzer.CompetitorEntry{
			{URL: "https://one.example/", Result: &analyzer.AnalysisResult{OverallScore: 50}},
		}
		s.PutAnalysis(ctx, a)

		got, err := s.GetAnalysis(ctx, "a7")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		got.Result.OverallScore = 1
		got.Competitors[0].Result.OverallScore = 1

		again, err := s.GetAnalysis(ctx, "a7")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if again.Result.OverallScore != 70 {
			t.Errorf("caller mutation leaked into the store: %d", again.Result.OverallScore)
		}
		if again.Competitors[0].Result.OverallScore != 50 {
			t.Errorf("caller mutation leaked into a stored competitor: %d", again.Competitors[0].Result.OverallScore)
		}
	})

	t.Run("ConcurrentUpdatesCannotOverdraw", func(t *testing.T) {
		a := newTestAnalysis("a6", false)
		a.Quota.RemainingCompetitorUpdates = 1
		s.PutAnalysis(ctx, a)

		var wg sync.WaitGroup
		successes := make(chan struct{}, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.ApplyCompetitorUpdate(ctx, "a6", nil, ai.Usage{}, false); err == nil {
					successes <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(successes)

		count := 0
		for range successes {
			count++
		}
		if count != 1 {
			t.Errorf("expected exactly 1 successful update, got %d", count)
		}
	})

	t.Run("MonthlyCounter", func(t *testing.T) {
		first, err := s.IncrMonthlyAnalyses(ctx, "acct-9")
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		second, _ := s.IncrMonthlyAnalyses(ctx, "acct-9")
		if first != 1 || second != 2 {
			t.Errorf("expected 1 then 2, got %d then %d", first, second)
		}

		if err := s.DecrMonthlyAnalyses(ctx, "acct-9"); err != nil {
			t.Fatalf("decr failed: %v", err)
		}
		third, _ := s.IncrMonthlyAnalyses(ctx, "acct-9")
		if third != 2 {
			t.Errorf("expected refund to roll the counter back, got %d", third)
		}
	})

	t.Run("MonthlyRefundNeverGoesNegative", func(t *testing.T) {
		if err := s.DecrMonthlyAnalyses(ctx, "acct-fresh"); err != nil {
			t.Fatalf("decr failed: %v", err)
		}
		count, _ := s.IncrMonthlyAnalyses(ctx, "acct-fresh")
		if count != 1 {
			t.Errorf("expected floor at zero, got %d after first incr", count)
		}
	})
}
