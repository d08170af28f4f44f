package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
	"github.com/Mediabooster-Norge/Analyse-sub000/store"
)

// RunCompetitorAnalysis fully analyzes the primary URL and quick-analyzes
// every competitor in parallel, then requests comparative AI commentary. A
// competitor that fails to fetch or analyze is dropped from the result set;
// only the primary URL is fatal.
func (s *Service) RunCompetitorAnalysis(ctx context.Context, primaryURL string, competitorURLs []string, opts Options) (*store.StoredAnalysis, error) {
	counted, err := s.checkMonthlyLimit(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Structural analysis of the primary runs without enrichment here; the
	// summary call below needs the competitor scores as context.
	primaryOpts := opts
	primaryOpts.IncludeAI = false
	primary, err := s.analyzePage(ctx, primaryURL, primaryOpts)
	if err != nil {
		if counted {
			s.refundMonthlyAnalysis(ctx, opts.AccountID)
		}
		return nil, err
	}

	competitors := s.AnalyzeCompetitorsOnly(ctx, competitorURLs)

	if opts.IncludeAI && s.ai != nil {
		scores := make(map[string]int, len(competitors))
		for _, c := range competitors {
			scores[c.URL] = c.Result.OverallScore
		}
		s.enrich(ctx, primary, opts, scores)
		s.checkCompetitorVisibility(ctx, primary, competitors, opts)
	}

	return s.persist(ctx, primary, competitors, opts)
}

// AnalyzeCompetitorsOnly analyzes each URL concurrently in quick security
// mode with a bounded worker count. Failures drop the competitor rather than
// aborting the batch; partial results are acceptable here.
func (s *Service) AnalyzeCompetitorsOnly(ctx context.Context, urls []string) []analyzer.CompetitorEntry {
	var (
		mu      sync.Mutex
		entries []analyzer.CompetitorEntry
	)

	quickOpts := Options{QuickSecurityScan: true}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			result, err := s.analyzePage(gctx, u, quickOpts)
			if err != nil {
				s.log.Warn("competitor analysis dropped", zap.String("url", u), zap.Error(err))
				return nil
			}
			mu.Lock()
			entries = append(entries, analyzer.CompetitorEntry{URL: u, Result: result})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return entries
}

// checkCompetitorVisibility issues one AI-visibility call per participant
// (primary plus each surviving competitor) in parallel. Premium only; usage
// is summed into the primary result.
func (s *Service) checkCompetitorVisibility(ctx context.Context, primary *analyzer.AnalysisResult, competitors []analyzer.CompetitorEntry, opts Options) {
	if !opts.CheckAIVisibility || !opts.IsPremiumAccount {
		return
	}

	keywords := topKeywords(primary.Content.Keywords, 10)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, c := range competitors {
		wg.Add(1)
		go func(entry analyzer.CompetitorEntry) {
			defer wg.Done()
			visibility, err := s.ai.CheckVisibility(ctx, domainOf(entry.URL), "", keywords, opts.UsePremiumAIModel)
			if err != nil {
				s.log.Warn("competitor visibility check failed", zap.String("url", entry.URL), zap.Error(err))
				return
			}
			mu.Lock()
			entry.Result.AIVisibility = &visibility.Visibility
			primary.Usage.Add(visibility.Usage)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
}
