package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
	"github.com/Mediabooster-Norge/Analyse-sub000/store"
)

// UpdateCompetitors re-scores only the competitor set of a stored analysis.
// The target set is diffed against the stored set: only added URLs are
// fetched, unchanged entries are kept without re-fetching, removed entries
// are dropped. Exactly one competitor update is consumed per call, however
// many items changed. An identical target set is rejected before any quota
// is consumed.
func (s *Service) UpdateCompetitors(ctx context.Context, analysisID string, targetURLs []string, premium bool) (*store.StoredAnalysis, error) {
	stored, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	current := make(map[string]analyzer.CompetitorEntry, len(stored.Competitors))
	for _, c := range stored.Competitors {
		current[normalizeURL(c.URL)] = c
	}

	var added []string
	target := make(map[string]bool, len(targetURLs))
	merged := make([]analyzer.CompetitorEntry, 0, len(targetURLs))
	for _, u := range targetURLs {
		key := normalizeURL(u)
		if target[key] {
			continue
		}
		target[key] = true
		if entry, kept := current[key]; kept {
			merged = append(merged, entry)
		} else {
			added = append(added, u)
		}
	}
	removed := 0
	for key := range current {
		if !target[key] {
			removed++
		}
	}

	if len(added) == 0 && removed == 0 {
		return nil, ErrNoChanges
	}

	// Best-effort precheck so an exhausted quota fails before the fetches.
	// The store enforces the real check atomically with the write.
	if !premium && stored.Quota.RemainingCompetitorUpdates <= 0 {
		return nil, store.ErrQuotaExceeded
	}

	for _, entry := range s.AnalyzeCompetitorsOnly(ctx, added) {
		merged = append(merged, entry)
	}

	return s.store.ApplyCompetitorUpdate(ctx, analysisID, merged, ai.Usage{}, premium)
}

// UpdateKeywords replaces the stored keyword-market table by re-running
// keyword research for the given list; the page itself is not re-analyzed.
// Consumes exactly one keyword update.
func (s *Service) UpdateKeywords(ctx context.Context, analysisID string, keywords []string, premium bool, usePremiumModel bool) (*store.StoredAnalysis, error) {
	if len(keywords) == 0 {
		return nil, ErrNoChanges
	}

	stored, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if sameKeywordSet(keywords, stored.Result.KeywordMarket) {
		return nil, ErrNoChanges
	}
	if !premium && stored.Quota.RemainingKeywordUpdates <= 0 {
		return nil, store.ErrQuotaExceeded
	}
	if s.ai == nil {
		return nil, fmt.Errorf("keyword research unavailable")
	}

	research, err := s.ai.ResearchKeywords(ctx, keywords, "", usePremiumModel)
	if err != nil {
		return nil, fmt.Errorf("keyword research: %w", err)
	}

	return s.store.ApplyKeywordUpdate(ctx, analysisID, research.Keywords, research.Usage, premium)
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(u)), "/")
}

func sameKeywordSet(requested []string, stored []ai.KeywordMetric) bool {
	if len(stored) == 0 {
		return false
	}
	existing := make(map[string]bool, len(stored))
	for _, m := range stored {
		existing[strings.ToLower(m.Keyword)] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, k := range requested {
		key := strings.ToLower(strings.TrimSpace(k))
		if !existing[key] {
			return false
		}
		seen[key] = true
	}
	return len(seen) == len(existing)
}
