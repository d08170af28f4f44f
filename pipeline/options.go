package pipeline

import "errors"

var (
	// ErrNoChanges rejects a partial update whose target set equals the
	// stored set. No quota is consumed.
	ErrNoChanges = errors.New("no changes requested")
	// ErrMonthlyLimit is returned when a non-premium account has used up its
	// monthly analysis allowance.
	ErrMonthlyLimit = errors.New("monthly analysis limit reached")
)

// Options controls one analysis run.
type Options struct {
	IncludeAI         bool
	UsePremiumAIModel bool
	QuickSecurityScan bool
	Industry          string
	TargetKeywords    []string
	CompanyName       string
	CheckAIVisibility bool
	IsPremiumAccount  bool
	AccountID         string
}

// DefaultOptions enables AI enrichment; everything else is opt-in.
func DefaultOptions() Options {
	return Options{IncludeAI: true}
}
