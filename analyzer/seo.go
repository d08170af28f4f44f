package analyzer

import (
	"context"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mediabooster-Norge/Analyse-sub000/fetcher"
)

// Link lists are deduplicated and capped to bound memory and payload size.
const (
	maxInternalCollected = 50
	maxExternalCollected = 20
	maxLinksExposed      = 10
)

// SiteProber performs the two site-level lookups the SEO analysis needs.
type SiteProber interface {
	FetchRobotsTxt(ctx context.Context, baseURL string) string
	FetchSitemap(ctx context.Context, baseURL string) fetcher.SitemapInfo
}

// SEOAnalyzer inspects page markup and site-level signals.
type SEOAnalyzer struct {
	prober SiteProber
}

func NewSEOAnalyzer(prober SiteProber) *SEOAnalyzer {
	return &SEOAnalyzer{prober: prober}
}

// Analyze produces the six sub-analyses and their composite score. The
// composite is the unweighted mean of the six sub-scores.
func (a *SEOAnalyzer) Analyze(ctx context.Context, doc *goquery.Document, pageURL string) SEOResult {
	result := SEOResult{
		Meta:      a.analyzeMeta(doc),
		Headings:  a.analyzeHeadings(doc),
		Images:    a.analyzeImages(doc),
		Links:     a.analyzeLinks(doc, pageURL),
		Mobile:    a.analyzeMobile(doc),
		Technical: a.analyzeTechnical(ctx, doc, pageURL),
	}

	sum := result.Meta.Score + result.Headings.Score + result.Images.Score +
		result.Links.Score + result.Mobile.Score + result.Technical.Score
	result.Score = roundScore(float64(sum) / 6)
	result.Recommendations = a.recommendations(&result)
	return result
}

func (a *SEOAnalyzer) analyzeMeta(doc *goquery.Document) MetaAnalysis {
	meta := MetaAnalysis{}
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	meta.TitleLength = len(meta.Title)
	meta.Description, _ = doc.Find("meta[name='description']").Attr("content")
	meta.Description = strings.TrimSpace(meta.Description)
	meta.DescriptionLength = len(meta.Description)

	meta.HasOGTitle = doc.Find("meta[property='og:title']").Length() > 0
	meta.HasOGDescription = doc.Find("meta[property='og:description']").Length() > 0
	meta.HasOGImage = doc.Find("meta[property='og:image']").Length() > 0
	meta.HasCanonical = doc.Find("link[rel='canonical']").Length() > 0
	meta.Robots, _ = doc.Find("meta[name='robots']").Attr("content")

	score := 0
	if meta.TitleLength > 0 {
		if meta.TitleLength >= 30 && meta.TitleLength <= 60 {
			score += 25
		} else {
			score += 15
		}
	}
	if meta.DescriptionLength > 0 {
		if meta.DescriptionLength >= 150 && meta.DescriptionLength <= 160 {
			score += 25
		} else {
			score += 15
		}
	}
	ogPresent := 0
	for _, has := range []bool{meta.HasOGTitle, meta.HasOGDescription, meta.HasOGImage} {
		if has {
			ogPresent++
		}
	}
	score += roundScore(25 * float64(ogPresent) / 3)
	if meta.HasCanonical {
		score += 15
	}
	if !strings.Contains(strings.ToLower(meta.Robots), "noindex") {
		score += 10
	}

	meta.Score = clampScore(score)
	return meta
}

func (a *SEOAnalyzer) analyzeHeadings(doc *goquery.Document) HeadingAnalysis {
	h := HeadingAnalysis{}
	h.H1Count = doc.Find("h1").Length()
	h.H2Count = doc.Find("h2").Length()
	h.H3Count = doc.Find("h3").Length()
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		h.H1Text = append(h.H1Text, strings.TrimSpace(s.Text()))
	})

	if h.H3Count > 0 && h.H2Count == 0 {
		h.HierarchyIssues = append(h.HierarchyIssues, "H3 used without any H2")
	}

	score := 100
	if h.H1Count == 0 {
		score -= 30
	} else if h.H1Count > 1 {
		score -= 15
	}
	if h.H2Count == 0 {
		score -= 10
	}
	score -= 10 * len(h.HierarchyIssues)

	h.Score = clampScore(score)
	return h
}

// analyzeImages scores alt coverage and lazy loading. The first three images
// are expected to load eagerly, so the lazy ratio only counts images beyond
// them; a page with three or fewer images is not penalized.
func (a *SEOAnalyzer) analyzeImages(doc *goquery.Document) ImageAnalysis {
	img := ImageAnalysis{}
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		img.Total++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			img.WithAlt++
		} else {
			img.WithoutAlt++
		}
		if loading, ok := s.Attr("loading"); i >= 3 && ok && strings.EqualFold(loading, "lazy") {
			img.Lazy++
		}
	})

	altRatio := 1.0
	if img.Total > 0 {
		altRatio = float64(img.WithAlt) / float64(img.Total)
	}
	lazyRatio := 1.0
	if beyond := img.Total - 3; beyond > 0 {
		lazyRatio = float64(img.Lazy) / float64(beyond)
	}

	img.Score = clampScore(roundScore(altRatio*70 + lazyRatio*30))
	return img
}

func (a *SEOAnalyzer) analyzeLinks(doc *goquery.Document, pageURL string) LinkAnalysis {
	links := LinkAnalysis{}
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		resolved := href
		if base != nil {
			if u, err := base.Parse(href); err == nil {
				resolved = u.String()
			}
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		if isInternal(resolved, base) {
			if len(links.Internal) < maxInternalCollected {
				links.Internal = append(links.Internal, resolved)
			}
		} else if strings.HasPrefix(resolved, "http") {
			if len(links.External) < maxExternalCollected {
				links.External = append(links.External, resolved)
			}
		}
	})

	links.InternalCount = len(links.Internal)
	links.ExternalCount = len(links.External)
	if len(links.Internal) > maxLinksExposed {
		links.Internal = links.Internal[:maxLinksExposed]
	}
	if len(links.External) > maxLinksExposed {
		links.External = links.External[:maxLinksExposed]
	}

	score := 100
	if links.InternalCount == 0 {
		score -= 20
	}
	if links.InternalCount < 3 {
		score -= 10
	}
	score -= 10 * links.BrokenCount

	links.Score = clampScore(score)
	return links
}

func isInternal(link string, base *url.URL) bool {
	if base == nil {
		return strings.HasPrefix(link, "/")
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Host == "" || strings.EqualFold(u.Host, base.Host)
}

func (a *SEOAnalyzer) analyzeMobile(doc *goquery.Document) MobileAnalysis {
	mobile := MobileAnalysis{}
	content, _ := doc.Find("meta[name='viewport']").Attr("content")
	lower := strings.ToLower(content)
	mobile.HasViewport = content != ""
	mobile.Responsive = strings.Contains(lower, "width=device-width")

	if strings.Contains(lower, "user-scalable=no") {
		mobile.Issues = append(mobile.Issues, "viewport disables zooming")
	}
	if strings.Contains(lower, "maximum-scale=1") {
		mobile.Issues = append(mobile.Issues, "viewport restricts maximum scale")
	}

	score := 100
	if !mobile.HasViewport {
		score -= 40
	}
	if !mobile.Responsive {
		score -= 30
	}
	score -= 10 * len(mobile.Issues)

	mobile.Score = clampScore(score)
	return mobile
}

// analyzeTechnical performs the only outbound calls of the SEO analysis:
// robots.txt and sitemap probes through the fetch collaborator. Hreflang
// absence is not penalized for single-language sites, hence the else branch.
func (a *SEOAnalyzer) analyzeTechnical(ctx context.Context, doc *goquery.Document, pageURL string) TechnicalAnalysis {
	tech := TechnicalAnalysis{}
	tech.HTTPS = strings.HasPrefix(strings.ToLower(pageURL), "https://")
	tech.HasHreflang = doc.Find("link[rel='alternate'][hreflang]").Length() > 0

	if a.prober != nil {
		tech.HasRobotsTxt = a.prober.FetchRobotsTxt(ctx, pageURL) != ""
		sitemap := a.prober.FetchSitemap(ctx, pageURL)
		tech.HasSitemap = sitemap.Exists
		tech.SitemapURL = sitemap.URL
	}

	score := 0
	if tech.HTTPS {
		score += 30
	}
	if tech.HasRobotsTxt {
		score += 20
	}
	if tech.HasSitemap {
		score += 25
	}
	if tech.HasHreflang {
		score += 15
	} else {
		score += 10
	}

	tech.Score = clampScore(score)
	return tech
}

func (a *SEOAnalyzer) recommendations(r *SEOResult) []string {
	var recs []string

	if r.Meta.TitleLength == 0 {
		recs = append(recs, "Add a title tag to the page")
	} else if r.Meta.TitleLength < 30 || r.Meta.TitleLength > 60 {
		recs = append(recs, "Adjust the title length to 30-60 characters")
	}
	if r.Meta.DescriptionLength == 0 {
		recs = append(recs, "Add a meta description")
	} else if r.Meta.DescriptionLength < 150 || r.Meta.DescriptionLength > 160 {
		recs = append(recs, "Adjust the meta description length to 150-160 characters")
	}
	if !r.Meta.HasOGTitle || !r.Meta.HasOGDescription || !r.Meta.HasOGImage {
		recs = append(recs, "Complete the Open Graph tags (title, description, image)")
	}
	if !r.Meta.HasCanonical {
		recs = append(recs, "Add a canonical link tag")
	}
	if r.Headings.H1Count == 0 {
		recs = append(recs, "Add an H1 heading")
	} else if r.Headings.H1Count > 1 {
		recs = append(recs, "Use only one H1 heading")
	}
	for _, issue := range r.Headings.HierarchyIssues {
		recs = append(recs, "Fix heading hierarchy: "+issue)
	}
	if r.Images.WithoutAlt > 0 {
		recs = append(recs, "Add alt text to all images")
	}
	if r.Links.InternalCount < 3 {
		recs = append(recs, "Add more internal links (aim for at least 3)")
	}
	if !r.Mobile.HasViewport {
		recs = append(recs, "Add a viewport meta tag for mobile devices")
	} else if !r.Mobile.Responsive {
		recs = append(recs, "Use width=device-width in the viewport meta tag")
	}
	if !r.Technical.HTTPS {
		recs = append(recs, "Serve the site over HTTPS")
	}
	if !r.Technical.HasSitemap {
		recs = append(recs, "Publish a sitemap.xml")
	}

	return recs
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
