package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "AnalyseBot/1.0"

// maxBodySize caps how much of a response we are willing to buffer.
const maxBodySize = 10 << 20 // 10 MB

// PageSnapshot is one page at one point in time: the raw markup plus the
// response headers. It is consumed read-only by the analyzers and never
// persisted.
type PageSnapshot struct {
	URL        string
	HTML       string
	Headers    http.Header
	StatusCode int
}

// Document parses the snapshot markup. Parsing is cheap relative to the
// fetch, so callers parse on demand rather than the snapshot caching a tree.
func (s *PageSnapshot) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
}

// SitemapInfo reports whether a sitemap could be located for a site.
type SitemapInfo struct {
	Exists bool   `json:"exists"`
	URL    string `json:"url,omitempty"`
}

// Client fetches pages and site-level resources over HTTP.
type Client struct {
	http *http.Client
}

// New creates a fetch client with connection pooling and a bounded timeout.
func New() *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Fetch performs a single GET and returns the page snapshot. A non-2xx/3xx
// status is an error: a page we cannot retrieve cannot be analyzed.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &PageSnapshot{
		URL:        finalURL,
		HTML:       buf.String(),
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

// FetchRobotsTxt returns the robots.txt body for the site, or "" when the
// file does not exist or cannot be retrieved.
func (c *Client) FetchRobotsTxt(ctx context.Context, baseURL string) string {
	body, ok := c.get(ctx, joinPath(baseURL, "/robots.txt"))
	if !ok {
		return ""
	}
	return body
}

// FetchSitemap probes /sitemap.xml and falls back to Sitemap: directives in
// robots.txt.
func (c *Client) FetchSitemap(ctx context.Context, baseURL string) SitemapInfo {
	sitemapURL := joinPath(baseURL, "/sitemap.xml")
	if _, ok := c.get(ctx, sitemapURL); ok {
		return SitemapInfo{Exists: true, URL: sitemapURL}
	}
	robots := c.FetchRobotsTxt(ctx, baseURL)
	for _, line := range strings.Split(robots, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			loc := strings.TrimSpace(line[len("sitemap:"):])
			if loc != "" {
				return SitemapInfo{Exists: true, URL: loc}
			}
		}
	}
	return SitemapInfo{}
}

func (c *Client) get(ctx context.Context, target string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		return "", false
	}
	return buf.String(), true
}

// joinPath resolves a site-root path against the page URL's scheme and host.
func joinPath(baseURL, path string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(baseURL, "/") + path
	}
	return u.Scheme + "://" + u.Host + path
}
