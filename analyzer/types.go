package analyzer

import "github.com/Mediabooster-Norge/Analyse-sub000/ai"

// SEOResult is the composite of the six structural sub-analyses.
type SEOResult struct {
	Meta            MetaAnalysis      `json:"meta"`
	Headings        HeadingAnalysis   `json:"headings"`
	Images          ImageAnalysis     `json:"images"`
	Links           LinkAnalysis      `json:"links"`
	Mobile          MobileAnalysis    `json:"mobile"`
	Technical       TechnicalAnalysis `json:"technical"`
	Score           int               `json:"score"`
	Recommendations []string          `json:"recommendations"`
}

type MetaAnalysis struct {
	Title             string `json:"title"`
	TitleLength       int    `json:"titleLength"`
	Description       string `json:"description"`
	DescriptionLength int    `json:"descriptionLength"`
	HasOGTitle        bool   `json:"hasOgTitle"`
	HasOGDescription  bool   `json:"hasOgDescription"`
	HasOGImage        bool   `json:"hasOgImage"`
	HasCanonical      bool   `json:"hasCanonical"`
	Robots            string `json:"robots"`
	Score             int    `json:"score"`
}

type HeadingAnalysis struct {
	H1Count         int      `json:"h1Count"`
	H2Count         int      `json:"h2Count"`
	H3Count         int      `json:"h3Count"`
	H1Text          []string `json:"h1Text"`
	HierarchyIssues []string `json:"hierarchyIssues"`
	Score           int      `json:"score"`
}

// ImageAnalysis invariant: WithAlt + WithoutAlt == Total.
type ImageAnalysis struct {
	Total      int `json:"total"`
	WithAlt    int `json:"withAlt"`
	WithoutAlt int `json:"withoutAlt"`
	Lazy       int `json:"lazy"`
	Score      int `json:"score"`
}

type LinkAnalysis struct {
	InternalCount int      `json:"internalCount"`
	ExternalCount int      `json:"externalCount"`
	BrokenCount   int      `json:"brokenCount"`
	Internal      []string `json:"internal"`
	External      []string `json:"external"`
	Score         int      `json:"score"`
}

type MobileAnalysis struct {
	HasViewport bool     `json:"hasViewport"`
	Responsive  bool     `json:"responsive"`
	Issues      []string `json:"issues"`
	Score       int      `json:"score"`
}

type TechnicalAnalysis struct {
	HTTPS        bool   `json:"https"`
	HasRobotsTxt bool   `json:"hasRobotsTxt"`
	HasSitemap   bool   `json:"hasSitemap"`
	SitemapURL   string `json:"sitemapUrl,omitempty"`
	HasHreflang  bool   `json:"hasHreflang"`
	Score        int    `json:"score"`
}

// ContentResult describes the textual quality of the page body.
type ContentResult struct {
	WordCount      int         `json:"wordCount"`
	CharacterCount int         `json:"characterCount"`
	SentenceCount  int         `json:"sentenceCount"`
	ParagraphCount int         `json:"paragraphCount"`
	Readability    Readability `json:"readability"`
	Keywords       []Keyword   `json:"keywords"`
	HasCTA         bool        `json:"hasCta"`
	CTAExamples    []string    `json:"ctaExamples"`
	Score          int         `json:"score"`
}

// Readability is a LIX-style index banded into difficulty labels.
type Readability struct {
	Index               float64 `json:"index"`
	Label               string  `json:"label"`
	AvgWordsPerSentence float64 `json:"avgWordsPerSentence"`
	LongWordPercentage  float64 `json:"longWordPercentage"`
}

// Keyword rows are ordered by descending frequency. Density is
// count/totalWords*100 rounded to one decimal.
type Keyword struct {
	Word    string  `json:"word"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// TLSGrade is the certificate grade reported by the TLS collaborator.
// DaysUntilExpiry is nil when no certificate could be inspected.
type TLSGrade struct {
	Grade           string `json:"grade"`
	DaysUntilExpiry *int   `json:"daysUntilExpiry"`
}

// HeaderGrade is the HTTP-security-header assessment. The flag-to-score
// mapping is owned by the header-grading collaborator.
type HeaderGrade struct {
	HSTS              bool `json:"hsts"`
	CSP               bool `json:"csp"`
	XFrameOptions     bool `json:"xFrameOptions"`
	XContentTypeOpts  bool `json:"xContentTypeOptions"`
	ReferrerPolicy    bool `json:"referrerPolicy"`
	PermissionsPolicy bool `json:"permissionsPolicy"`
	Score             int  `json:"score"`
}

// SecurityResult combines the TLS and header grades.
type SecurityResult struct {
	TLS      TLSGrade    `json:"tls"`
	Headers  HeaderGrade `json:"headers"`
	Score    int         `json:"score"`
	Degraded bool        `json:"degraded,omitempty"`
}

// AnalysisResult aggregates one run of the full pipeline. It is created once
// and never mutated in place; enrichment failures leave the optional fields
// nil rather than producing a partial object.
type AnalysisResult struct {
	URL           string             `json:"url"`
	SEO           SEOResult          `json:"seo"`
	Content       ContentResult      `json:"content"`
	Security      SecurityResult     `json:"security"`
	OverallScore  int                `json:"overallScore"`
	AISummary     *ai.Summary        `json:"aiSummary,omitempty"`
	KeywordMarket []ai.KeywordMetric `json:"keywordMarket,omitempty"`
	AIVisibility  *ai.Visibility     `json:"aiVisibility,omitempty"`
	Usage         ai.Usage           `json:"usage"`
}

// CompetitorEntry pairs a competitor URL with its quick-mode analysis.
type CompetitorEntry struct {
	URL    string          `json:"url"`
	Result *AnalysisResult `json:"result"`
}

// ComparisonSet is the primary analysis plus its surviving competitors.
type ComparisonSet struct {
	Primary     *AnalysisResult   `json:"primary"`
	Competitors []CompetitorEntry `json:"competitors"`
}

// OverallScore applies the fixed dimension weighting.
func OverallScore(seo, content, security int) int {
	return roundScore(float64(seo)*0.4 + float64(content)*0.3 + float64(security)*0.3)
}
