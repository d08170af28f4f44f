package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mediabooster-Norge/Analyse-sub000/fetcher"
)

type fakeProber struct {
	robots  string
	sitemap fetcher.SitemapInfo
}

func (f *fakeProber) FetchRobotsTxt(_ context.Context, _ string) string {
	return f.robots
}

func (f *fakeProber) FetchSitemap(_ context.Context, _ string) fetcher.SitemapInfo {
	return f.sitemap
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test HTML: %v", err)
	}
	return doc
}

func TestImageAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(nil)

	t.Run("InvariantWithAltPlusWithoutAlt", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<img src="a.png" alt="a">
			<img src="b.png">
			<img src="c.png" alt="">
			<img src="d.png" alt="d">
		</body></html>`)

		img := a.analyzeImages(doc)
		if img.Total != 4 {
			t.Fatalf("expected 4 images, got %d", img.Total)
		}
		if img.WithAlt+img.WithoutAlt != img.Total {
			t.Errorf("invariant violated: %d + %d != %d", img.WithAlt, img.WithoutAlt, img.Total)
		}
		if img.WithAlt != 2 {
			t.Errorf("expected 2 images with alt, got %d", img.WithAlt)
		}
	})

	t.Run("ScoreExample", func(t *testing.T) {
		// 4 images, 3 with alt, the single image beyond the first three is
		// lazy-loaded: altRatio 0.75, lazyRatio 1 -> round(52.5+30) = 83.
		doc := parseHTML(t, `<html><body>
			<img src="a.png" alt="a">
			<img src="b.png" alt="b">
			<img src="c.png" alt="c">
			<img src="d.png" loading="lazy">
		</body></html>`)

		img := a.analyzeImages(doc)
		if img.Score != 83 {
			t.Errorf("expected score 83, got %d", img.Score)
		}
	})

	t.Run("FewImagesNotPenalizedForLazy", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<img src="a.png" alt="a">
			<img src="b.png" alt="b">
		</body></html>`)

		img := a.analyzeImages(doc)
		if img.Score != 100 {
			t.Errorf("expected score 100 for small eager set, got %d", img.Score)
		}
	})

	t.Run("NoImages", func(t *testing.T) {
		doc := parseHTML(t, `<html><body><p>text</p></body></html>`)
		img := a.analyzeImages(doc)
		if img.Score != 100 {
			t.Errorf("expected score 100 with no images, got %d", img.Score)
		}
	})
}

func TestHeadingAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(nil)

	t.Run("MissingH1", func(t *testing.T) {
		doc := parseHTML(t, `<html><body><h2>sub</h2><p>text</p></body></html>`)
		h := a.analyzeHeadings(doc)
		if h.Score != 70 {
			t.Errorf("expected 70 (100-30 for no H1), got %d", h.Score)
		}
	})

	t.Run("MultipleH1", func(t *testing.T) {
		doc := parseHTML(t, `<html><body><h1>a</h1><h1>b</h1><h2>c</h2></body></html>`)
		h := a.analyzeHeadings(doc)
		if h.Score != 85 {
			t.Errorf("expected 85 (100-15 for duplicate H1), got %d", h.Score)
		}
	})

	t.Run("H3WithoutH2", func(t *testing.T) {
		doc := parseHTML(t, `<html><body><h1>a</h1><h3>deep</h3></body></html>`)
		h := a.analyzeHeadings(doc)
		if len(h.HierarchyIssues) != 1 {
			t.Fatalf("expected one hierarchy issue, got %d", len(h.HierarchyIssues))
		}
		// 100 - 10 (no H2) - 10 (hierarchy issue)
		if h.Score != 80 {
			t.Errorf("expected 80, got %d", h.Score)
		}
	})
}

func TestMetaAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(nil)

	t.Run("FullyOptimized", func(t *testing.T) {
		title := strings.Repeat("t", 40)
		desc := strings.Repeat("d", 155)
		doc := parseHTML(t, `<html><head>
			<title>`+title+`</title>
			<meta name="description" content="`+desc+`">
			<meta property="og:title" content="t">
			<meta property="og:description" content="d">
			<meta property="og:image" content="i.png">
			<link rel="canonical" href="https://example.com/">
		</head><body></body></html>`)

		meta := a.analyzeMeta(doc)
		if meta.Score != 100 {
			t.Errorf("expected 100, got %d", meta.Score)
		}
	})

	t.Run("NoindexLosesRobotsPoints", func(t *testing.T) {
		doc := parseHTML(t, `<html><head>
			<meta name="robots" content="noindex,nofollow">
		</head><body></body></html>`)

		meta := a.analyzeMeta(doc)
		if meta.Score != 0 {
			t.Errorf("expected 0 for empty noindex page, got %d", meta.Score)
		}
	})

	t.Run("PartialOpenGraph", func(t *testing.T) {
		doc := parseHTML(t, `<html><head>
			<meta property="og:title" content="t">
		</head><body></body></html>`)

		meta := a.analyzeMeta(doc)
		// 8 (a third of 25, rounded) + 10 robots
		if meta.Score != 18 {
			t.Errorf("expected 18, got %d", meta.Score)
		}
	})
}

func TestLinkAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(nil)

	t.Run("DeduplicatesAndCategorizes", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<a href="/about">About</a>
			<a href="/about">About again</a>
			<a href="/contact">Contact</a>
			<a href="https://example.com/pricing">Pricing</a>
			<a href="https://other.example.org/">Elsewhere</a>
			<a href="#">Anchor</a>
			<a href="mailto:hi@example.com">Mail</a>
		</body></html>`)

		links := a.analyzeLinks(doc, "https://example.com/")
		if links.InternalCount != 3 {
			t.Errorf("expected 3 internal links, got %d", links.InternalCount)
		}
		if links.ExternalCount != 1 {
			t.Errorf("expected 1 external link, got %d", links.ExternalCount)
		}
		if links.Score != 100 {
			t.Errorf("expected score 100, got %d", links.Score)
		}
	})

	t.Run("NoInternalLinks", func(t *testing.T) {
		doc := parseHTML(t, `<html><body><a href="https://other.org/">x</a></body></html>`)
		links := a.analyzeLinks(doc, "https://example.com/")
		// -20 for zero internal, -10 for fewer than 3
		if links.Score != 70 {
			t.Errorf("expected 70, got %d", links.Score)
		}
	})
}

func TestMobileAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(nil)

	t.Run("NoViewport", func(t *testing.T) {
		doc := parseHTML(t, `<html><head></head><body></body></html>`)
		m := a.analyzeMobile(doc)
		// -40 missing viewport, -30 not responsive
		if m.Score != 30 {
			t.Errorf("expected 30, got %d", m.Score)
		}
	})

	t.Run("ResponsiveViewport", func(t *testing.T) {
		doc := parseHTML(t, `<html><head>
			<meta name="viewport" content="width=device-width, initial-scale=1">
		</head><body></body></html>`)
		m := a.analyzeMobile(doc)
		if m.Score != 100 {
			t.Errorf("expected 100, got %d", m.Score)
		}
	})

	t.Run("ZoomDisabled", func(t *testing.T) {
		doc := parseHTML(t, `<html><head>
			<meta name="viewport" content="width=device-width, user-scalable=no">
		</head><body></body></html>`)
		m := a.analyzeMobile(doc)
		if m.Score != 90 {
			t.Errorf("expected 90, got %d", m.Score)
		}
	})
}

func TestTechnicalAnalysis(t *testing.T) {
	a := NewSEOAnalyzer(&fakeProber{
		robots:  "User-agent: *\nAllow: /",
		sitemap: fetcher.SitemapInfo{Exists: true, URL: "https://example.com/sitemap.xml"},
	})

	doc := parseHTML(t, `<html><head>
		<link rel="alternate" hreflang="en" href="https://example.com/en/">
	</head><body></body></html>`)

	tech := a.analyzeTechnical(context.Background(), doc, "https://example.com/")
	// 30 https + 20 robots + 25 sitemap + 15 hreflang
	if tech.Score != 90 {
		t.Errorf("expected 90, got %d", tech.Score)
	}

	t.Run("HreflangAbsenceNotPenalized", func(t *testing.T) {
		plain := parseHTML(t, `<html><body></body></html>`)
		tech := a.analyzeTechnical(context.Background(), plain, "https://example.com/")
		// 30 + 20 + 25 + 10 fallback
		if tech.Score != 85 {
			t.Errorf("expected 85, got %d", tech.Score)
		}
	})
}

func TestOverallScore(t *testing.T) {
	cases := []struct {
		seo, content, security int
		want                   int
	}{
		{0, 0, 0, 0},
		{100, 100, 100, 100},
		{80, 60, 40, 62},
		{50, 50, 50, 50},
	}
	for _, tc := range cases {
		if got := OverallScore(tc.seo, tc.content, tc.security); got != tc.want {
			t.Errorf("OverallScore(%d,%d,%d) = %d, want %d", tc.seo, tc.content, tc.security, got, tc.want)
		}
	}
}

func TestSEOCompositeIsMeanOfSubScores(t *testing.T) {
	a := NewSEOAnalyzer(&fakeProber{})
	doc := parseHTML(t, `<html><head>
		<title>`+strings.Repeat("t", 40)+`</title>
		<meta name="viewport" content="width=device-width">
	</head><body>
		<h1>Heading</h1><h2>Sub</h2>
		<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>
	</body></html>`)

	result := a.Analyze(context.Background(), doc, "https://example.com/")
	sum := result.Meta.Score + result.Headings.Score + result.Images.Score +
		result.Links.Score + result.Mobile.Score + result.Technical.Score
	want := roundScore(float64(sum) / 6)
	if result.Score != want {
		t.Errorf("composite %d, want mean %d", result.Score, want)
	}
}
