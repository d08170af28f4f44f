package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("X-Frame-Options", "DENY")
			w.Write([]byte("<html><head><title>Hello</title></head><body></body></html>"))
		case "/missing":
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New()

	t.Run("Success", func(t *testing.T) {
		snap, err := client.Fetch(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if !strings.Contains(snap.HTML, "<title>Hello</title>") {
			t.Error("expected page markup in snapshot")
		}
		if snap.Headers.Get("X-Frame-Options") != "DENY" {
			t.Error("expected response headers in snapshot")
		}

		doc, err := snap.Document()
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if doc.Find("title").Text() != "Hello" {
			t.Error("expected parsed title")
		}
	})

	t.Run("NotFoundIsError", func(t *testing.T) {
		if _, err := client.Fetch(context.Background(), server.URL+"/missing"); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("UnreachableIsError", func(t *testing.T) {
		if _, err := client.Fetch(context.Background(), "http://127.0.0.1:1/"); err == nil {
			t.Error("expected error for unreachable host")
		}
	})
}

func TestFetchRobotsTxt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nSitemap: https://example.com/custom-sitemap.xml\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New()

	robots := client.FetchRobotsTxt(context.Background(), server.URL+"/some/page")
	if !strings.Contains(robots, "User-agent") {
		t.Errorf("expected robots.txt body, got %q", robots)
	}

	t.Run("SitemapFromRobots", func(t *testing.T) {
		info := client.FetchSitemap(context.Background(), server.URL+"/some/page")
		if !info.Exists {
			t.Fatal("expected sitemap via robots.txt directive")
		}
		if info.URL != "https://example.com/custom-sitemap.xml" {
			t.Errorf("unexpected sitemap url %q", info.URL)
		}
	})
}

func TestFetchSitemapDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Write([]byte("<urlset></urlset>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New()
	info := client.FetchSitemap(context.Background(), server.URL)
	if !info.Exists {
		t.Fatal("expected sitemap.xml to be found")
	}
	if !strings.HasSuffix(info.URL, "/sitemap.xml") {
		t.Errorf("unexpected sitemap url %q", info.URL)
	}
}

func TestFetchSitemapMissing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := New()
	if info := client.FetchSitemap(context.Background(), server.URL); info.Exists {
		t.Error("expected no sitemap")
	}
}
