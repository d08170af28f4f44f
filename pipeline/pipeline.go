// Package pipeline orchestrates page analyses: one fetch, the three
// structural analyzers in parallel, the overall score, and best-effort AI
// enrichment with per-call failure isolation.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
	"github.com/Mediabooster-Norge/Analyse-sub000/fetcher"
	"github.com/Mediabooster-Norge/Analyse-sub000/store"
)

const (
	// FreeMonthlyAnalyses caps full analyses per account and month for
	// non-premium accounts.
	FreeMonthlyAnalyses = 10
	// maxFallbackKeywords bounds the premium keyword fallback call.
	maxFallbackKeywords = 20
	defaultWorkers      = 4
)

// Fetcher is the page-fetching collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.PageSnapshot, error)
}

// Service wires the analyzers and collaborators into the analysis pipeline.
type Service struct {
	fetch    Fetcher
	seo      *analyzer.SEOAnalyzer
	content  *analyzer.ContentAnalyzer
	security *analyzer.SecurityAnalyzer
	ai       ai.Service
	store    store.Store
	log      *zap.Logger
	workers  int
}

// New creates the pipeline service. aiSvc may be nil, which disables
// enrichment regardless of options.
func New(fetch Fetcher, seo *analyzer.SEOAnalyzer, content *analyzer.ContentAnalyzer,
	security *analyzer.SecurityAnalyzer, aiSvc ai.Service, st store.Store,
	workers int, log *zap.Logger) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		fetch:    fetch,
		seo:      seo,
		content:  content,
		security: security,
		ai:       aiSvc,
		store:    st,
		log:      log,
		workers:  workers,
	}
}

// RunFullAnalysis analyzes one URL, persists the result with a freshly
// seeded update quota, and returns the stored record. The fetch is fatal;
// enrichment failures degrade the result instead of failing the run.
func (s *Service) RunFullAnalysis(ctx context.Context, pageURL string, opts Options) (*store.StoredAnalysis, error) {
	counted, err := s.checkMonthlyLimit(ctx, opts)
	if err != nil {
		return nil, err
	}

	result, err := s.analyzePage(ctx, pageURL, opts)
	if err != nil {
		if counted {
			s.refundMonthlyAnalysis(ctx, opts.AccountID)
		}
		return nil, err
	}
	return s.persist(ctx, result, nil, opts)
}

// analyzePage is the single-page pipeline of the spec: fetch once, run the
// three analyzers concurrently, score, then enrich.
func (s *Service) analyzePage(ctx context.Context, pageURL string, opts Options) (*analyzer.AnalysisResult, error) {
	snap, err := s.fetch.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := snap.Document()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	result := &analyzer.AnalysisResult{URL: snap.URL}

	// The three structural analyzers have no ordering dependency on each
	// other, but all must complete before the overall score.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.SEO = s.seo.Analyze(gctx, doc, snap.URL)
		return nil
	})
	g.Go(func() error {
		result.Content = s.content.Analyze(doc)
		return nil
	})
	g.Go(func() error {
		result.Security = s.security.Analyze(gctx, snap.URL, snap.Headers, opts.QuickSecurityScan)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.OverallScore = analyzer.OverallScore(result.SEO.Score, result.Content.Score, result.Security.Score)

	if opts.IncludeAI && s.ai != nil {
		s.enrich(ctx, result, opts, nil)
	}
	return result, nil
}

// enrich fans out the AI calls in parallel. Each call is wrapped in its own
// error boundary: a failure leaves the corresponding field unset and is
// logged, never propagated. Usage from every successful call is summed.
func (s *Service) enrich(ctx context.Context, result *analyzer.AnalysisResult, opts Options, competitorScores map[string]int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		summary, err := s.ai.Summarize(ctx, s.summaryInput(result, opts, competitorScores), opts.UsePremiumAIModel)
		if err != nil {
			s.log.Warn("ai summary failed", zap.String("url", result.URL), zap.Error(err))
			return
		}
		mu.Lock()
		result.AISummary = &summary.Summary
		result.Usage.Add(summary.Usage)
		mu.Unlock()
	}()

	if len(opts.TargetKeywords) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			research, err := s.ai.ResearchKeywords(ctx, opts.TargetKeywords, opts.Industry, opts.UsePremiumAIModel)
			if err != nil {
				s.log.Warn("keyword research failed", zap.String("url", result.URL), zap.Error(err))
				return
			}
			mu.Lock()
			result.KeywordMarket = research.Keywords
			result.Usage.Add(research.Usage)
			mu.Unlock()
		}()
	}

	if opts.CheckAIVisibility && opts.IsPremiumAccount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visibility, err := s.ai.CheckVisibility(ctx, domainOf(result.URL), opts.CompanyName,
				topKeywords(result.Content.Keywords, 10), opts.UsePremiumAIModel)
			if err != nil {
				s.log.Warn("ai visibility check failed", zap.String("url", result.URL), zap.Error(err))
				return
			}
			mu.Lock()
			result.AIVisibility = &visibility.Visibility
			result.Usage.Add(visibility.Usage)
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Premium fallback: when no keywords were supplied but the summary
	// proposed some, trade one extra round-trip for keyword market data.
	// Sequenced after the summary because it consumes its output.
	if opts.IsPremiumAccount && len(opts.TargetKeywords) == 0 && result.AISummary != nil {
		proposed := append([]string{}, result.AISummary.PrimaryKeywords...)
		proposed = append(proposed, result.AISummary.MissingKeywords...)
		if len(proposed) > maxFallbackKeywords {
			proposed = proposed[:maxFallbackKeywords]
		}
		if len(proposed) > 0 {
			research, err := s.ai.ResearchKeywords(ctx, proposed, opts.Industry, opts.UsePremiumAIModel)
			if err != nil {
				s.log.Warn("fallback keyword research failed", zap.String("url", result.URL), zap.Error(err))
				return
			}
			result.KeywordMarket = research.Keywords
			result.Usage.Add(research.Usage)
		}
	}
}

func (s *Service) summaryInput(result *analyzer.AnalysisResult, opts Options, competitorScores map[string]int) ai.SummaryInput {
	return ai.SummaryInput{
		URL:              result.URL,
		OverallScore:     result.OverallScore,
		SEOScore:         result.SEO.Score,
		ContentScore:     result.Content.Score,
		SecurityScore:    result.Security.Score,
		Title:            result.SEO.Meta.Title,
		TopKeywords:      topKeywords(result.Content.Keywords, 5),
		Recommendations:  result.SEO.Recommendations,
		Industry:         opts.Industry,
		CompetitorScores: competitorScores,
	}
}

// checkMonthlyLimit consumes one monthly analysis up front; incr-then-check
// keeps the limit itself race-free. It reports whether a count was consumed
// so a failed run can be refunded: an unreachable URL should not burn one of
// a free account's analyses.
func (s *Service) checkMonthlyLimit(ctx context.Context, opts Options) (bool, error) {
	if s.store == nil || opts.AccountID == "" {
		return false, nil
	}
	count, err := s.store.IncrMonthlyAnalyses(ctx, opts.AccountID)
	if err != nil {
		return false, fmt.Errorf("monthly usage: %w", err)
	}
	if !opts.IsPremiumAccount && count > FreeMonthlyAnalyses {
		return false, ErrMonthlyLimit
	}
	return true, nil
}

func (s *Service) refundMonthlyAnalysis(ctx context.Context, accountID string) {
	if err := s.store.DecrMonthlyAnalyses(ctx, accountID); err != nil {
		s.log.Warn("monthly usage refund failed", zap.String("account", accountID), zap.Error(err))
	}
}

func (s *Service) persist(ctx context.Context, result *analyzer.AnalysisResult, competitors []analyzer.CompetitorEntry, opts Options) (*store.StoredAnalysis, error) {
	now := time.Now().UTC()
	stored := &store.StoredAnalysis{
		ID:          newAnalysisID(result.URL, now),
		AccountID:   opts.AccountID,
		URL:         result.URL,
		Result:      result,
		Competitors: competitors,
		Quota:       store.NewQuota(opts.IsPremiumAccount),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.store == nil {
		return stored, nil
	}
	if err := s.store.PutAnalysis(ctx, stored); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	return stored, nil
}

func newAnalysisID(pageURL string, now time.Time) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s|%d", pageURL, now.UnixNano())))
	return hex.EncodeToString(hash[:])
}

func domainOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return pageURL
	}
	return u.Host
}

func topKeywords(keywords []analyzer.Keyword, n int) []string {
	words := make([]string, 0, n)
	for _, kw := range keywords {
		if len(words) == n {
			break
		}
		words = append(words, kw.Word)
	}
	return words
}
