// Package store persists analyses, their update quotas and the monthly
// per-account usage counters. Two implementations exist: redis for
// production and a JSON-file store for single-node deployments and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

var (
	// ErrNotFound is returned when no analysis exists under the given id.
	ErrNotFound = errors.New("analysis not found")
	// ErrQuotaExceeded is returned when a partial-update counter is exhausted
	// for a non-premium account.
	ErrQuotaExceeded = errors.New("update quota exceeded")
)

// Quota seeds per account tier. Premium seeds are high enough to be
// effectively non-binding; the premium flag also bypasses the check.
const (
	FreeUpdateLimit    = 2
	PremiumUpdateLimit = 1000
)

// UpdateQuota holds the two independent partial-update counters. Each is
// decremented by exactly one per successful update call, regardless of how
// many items changed within that call.
type UpdateQuota struct {
	RemainingCompetitorUpdates int `json:"remainingCompetitorUpdates"`
	RemainingKeywordUpdates    int `json:"remainingKeywordUpdates"`
}

// NewQuota seeds the counters for an account tier.
func NewQuota(premium bool) UpdateQuota {
	limit := FreeUpdateLimit
	if premium {
		limit = PremiumUpdateLimit
	}
	return UpdateQuota{
		RemainingCompetitorUpdates: limit,
		RemainingKeywordUpdates:    limit,
	}
}

// StoredAnalysis is one persisted analysis with its competitors and quota.
type StoredAnalysis struct {
	ID          string                     `json:"id"`
	AccountID   string                     `json:"accountId"`
	URL         string                     `json:"url"`
	Result      *analyzer.AnalysisResult   `json:"result"`
	Competitors []analyzer.CompetitorEntry `json:"competitors,omitempty"`
	Quota       UpdateQuota                `json:"quota"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// Store is the persistence collaborator. The two Apply methods persist the
// mutation and decrement the corresponding quota counter as one atomic step;
// a read-then-write quota check in application code would let two concurrent
// updates overdraw the quota.
type Store interface {
	PutAnalysis(ctx context.Context, a *StoredAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*StoredAnalysis, error)

	ApplyCompetitorUpdate(ctx context.Context, id string, competitors []analyzer.CompetitorEntry, usage ai.Usage, premium bool) (*StoredAnalysis, error)
	ApplyKeywordUpdate(ctx context.Context, id string, keywords []ai.KeywordMetric, usage ai.Usage, premium bool) (*StoredAnalysis, error)

	// IncrMonthlyAnalyses bumps and returns the account's analysis count for
	// the current month. DecrMonthlyAnalyses refunds one count, used when an
	// analysis fails before producing a result.
	IncrMonthlyAnalyses(ctx context.Context, accountID string) (int, error)
	DecrMonthlyAnalyses(ctx context.Context, accountID string) error
}
