// Package ai defines the narrow contract against the AI text-generation
// collaborator: page summaries, keyword market research and AI-visibility
// estimates. Every call reports its own token and cost usage so the pipeline
// can sum usage additively across enrichment calls.
package ai

import "context"

// Usage is the token/cost accounting for one or more AI calls.
type Usage struct {
	TokensUsed int     `json:"tokensUsed"`
	CostUSD    float64 `json:"costUsd"`
	Model      string  `json:"model,omitempty"`
}

// Add merges another usage record into this one. Model keeps the first
// non-empty value; mixed-model runs report the model of the first call.
func (u *Usage) Add(other Usage) {
	u.TokensUsed += other.TokensUsed
	u.CostUSD += other.CostUSD
	if u.Model == "" {
		u.Model = other.Model
	}
}

// Summary is AI commentary on one analysis, optionally with keyword
// suggestions the premium fallback can feed into keyword research.
type Summary struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	PrimaryKeywords []string `json:"primaryKeywords,omitempty"`
	MissingKeywords []string `json:"missingKeywords,omitempty"`
}

// KeywordMetric is one row of keyword market data.
type KeywordMetric struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"searchVolume"`
	CPC          float64 `json:"cpc"`
	Competition  string  `json:"competition"`
	Intent       string  `json:"intent"`
	Difficulty   int     `json:"difficulty"`
	Trend        string  `json:"trend"`
}

// Visibility estimates how likely a domain is to be surfaced by AI-driven
// answer engines for its keywords.
type Visibility struct {
	Score       int    `json:"score"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

// SummaryInput carries the structural scores and headline findings the
// summary call is grounded on. CompetitorScores is non-nil only for
// comparative commentary.
type SummaryInput struct {
	URL              string         `json:"url"`
	OverallScore     int            `json:"overallScore"`
	SEOScore         int            `json:"seoScore"`
	ContentScore     int            `json:"contentScore"`
	SecurityScore    int            `json:"securityScore"`
	Title            string         `json:"title,omitempty"`
	TopKeywords      []string       `json:"topKeywords,omitempty"`
	Recommendations  []string       `json:"recommendations,omitempty"`
	Industry         string         `json:"industry,omitempty"`
	CompetitorScores map[string]int `json:"competitorScores,omitempty"`
}

// SummaryResult is a summary plus its usage.
type SummaryResult struct {
	Summary Summary
	Usage   Usage
}

// KeywordResult is a researched keyword table plus its usage.
type KeywordResult struct {
	Keywords []KeywordMetric
	Usage    Usage
}

// VisibilityResult is a visibility estimate plus its usage.
type VisibilityResult struct {
	Visibility Visibility
	Usage      Usage
}

// Service is the AI text collaborator. Implementations must be safe for
// concurrent use: the pipeline fans out enrichment calls in parallel.
type Service interface {
	Summarize(ctx context.Context, in SummaryInput, premium bool) (*SummaryResult, error)
	ResearchKeywords(ctx context.Context, keywords []string, industry string, premium bool) (*KeywordResult, error)
	CheckVisibility(ctx context.Context, domain, companyName string, keywords []string, premium bool) (*VisibilityResult, error)
}
