package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/retry"
)

func rssFeed(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title><link>https://news.google.com</link>` +
		strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link, desc string, pub time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description><pubDate>%s</pubDate></item>`,
		title, link, desc, pub.Format(time.RFC1123Z))
}

func newTestRSS(srv *httptest.Server) *RSSSource {
	s := NewRSSSource(srv.Client(), "es-419", "VE", retry.RetryConfig{MaxAttempts: 1})
	s.BaseURL = srv.URL
	return s
}

func TestQueryText(t *testing.T) {
	got := QueryText("Venezuela petróleo", []string{"pdvsa", "exportación de gas", " "})
	want := `Venezuela petróleo (pdvsa OR "exportación de gas")`
	if got != want {
		t.Errorf("QueryText = %q, want %q", got, want)
	}
	if got := QueryText("Venezuela", nil); got != "Venezuela" {
		t.Errorf("QueryText without keywords = %q", got)
	}
	many := QueryText("t", []string{"a", "b", "c", "d", "e", "f", "g", "h"})
	if strings.Count(many, " OR ") != maxQueryKeywords-1 {
		t.Errorf("expected %d keywords, got %q", maxQueryKeywords, many)
	}
}

func TestBuildQueryWindow(t *testing.T) {
	if got := BuildQuery("Venezuela", nil, news.Week); got != "Venezuela when:7d" {
		t.Errorf("BuildQuery = %q", got)
	}
}

func TestRSSSearchURL(t *testing.T) {
	s := NewRSSSource(http.DefaultClient, "es-419", "VE", retry.RetryConfig{})
	u, err := url.Parse(s.SearchURL(Query{Topic: "Venezuela economía", Window: news.Day}))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("q") != "Venezuela economía when:1d" || q.Get("ceid") != "VE:es-419" || q.Get("gl") != "VE" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestRSSSearchDedupsLinks(t *testing.T) {
	now := time.Now()
	feed := rssFeed(
		rssItem("Chevron eleva producción - Banca y Negocios", "https://bancaynegocios.com/chevron", "<a href=\"x\">Chevron eleva producción</a>", now),
		rssItem("PDVSA exporta gas - El Pitazo", "https://elpitazo.net/pdvsa-gas", "Exportación de gas a Colombia", now),
		rssItem("Chevron eleva producción (actualizada) - Banca y Negocios", "https://bancaynegocios.com/chevron", "", now),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	got, err := newTestRSS(srv).Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day, Limit: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 headlines, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Chevron eleva producción" || got[0].Source != "Banca y Negocios" {
		t.Errorf("title/source not split: %+v", got[0])
	}
	if got[1].Description != "Exportación de gas a Colombia" {
		t.Errorf("unexpected description: %q", got[1].Description)
	}
	if got[0].Published.IsZero() {
		t.Error("publication date should be kept")
	}
}

func TestRSSSearchLimitAndWindow(t *testing.T) {
	now := time.Now()
	var items []string
	for i := 0; i < 12; i++ {
		items = append(items, rssItem(fmt.Sprintf("Nota %d", i), fmt.Sprintf("https://example.com/%d", i), "", now))
	}
	items = append(items, rssItem("Vieja", "https://example.com/old", "", now.Add(-72*time.Hour)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(items...))
	}))
	defer srv.Close()

	got, err := newTestRSS(srv).Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("expected limit 5, got %d", len(got))
	}
	for _, h := range got {
		if h.Title == "Vieja" {
			t.Error("item outside the window should be skipped")
		}
	}
}

func TestRSSSearchNon200ReturnsEmpty(t *testing.T) {
	for _, tc := range []struct {
		status int
		kind   fault.Kind
	}{
		{http.StatusServiceUnavailable, fault.UpstreamUnavailable},
		{http.StatusTooManyRequests, fault.RateLimited},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		got, err := newTestRSS(srv).Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day})
		srv.Close()

		if got == nil || len(got) != 0 {
			t.Errorf("status %d: expected empty non-nil list, got %v", tc.status, got)
		}
		if fault.KindOf(err) != tc.kind {
			t.Errorf("status %d: expected %s, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestRSSSearchTimeoutReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	s := newTestRSS(srv)
	s.Client = &http.Client{Timeout: 50 * time.Millisecond}

	got, err := s.Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day})
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
	if fault.KindOf(err) != fault.NetworkError {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestRSSSearchRetriesTransientFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, rssFeed(rssItem("Nota", "https://example.com/1", "", time.Now())))
	}))
	defer srv.Close()

	s := newTestRSS(srv)
	s.Retry = retry.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Retryable: retry.Transient}
	got, err := s.Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || calls != 2 {
		t.Errorf("expected 1 headline after 2 calls, got %d after %d", len(got), calls)
	}
}

func TestRSSSearchClientErrorsNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound} {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(status)
		}))
		s := newTestRSS(srv)
		s.Retry = retry.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Retryable: retry.Transient}
		got, err := s.Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day})
		srv.Close()

		if calls != 1 {
			t.Errorf("status %d: expected 1 call, got %d", status, calls)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("status %d: expected empty non-nil list, got %v", status, got)
		}
		if fault.KindOf(err) != fault.UpstreamUnavailable || !fault.IsPermanent(err) {
			t.Errorf("status %d: expected permanent upstream error, got %v", status, err)
		}
	}
}

func TestRSSSearchMalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer srv.Close()

	got, err := newTestRSS(srv).Search(context.Background(), Query{Topic: "Venezuela", Window: news.Day})
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
	if fault.KindOf(err) != fault.ParseError {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestSplitSource(t *testing.T) {
	title, source := splitSource("Maduro habla - con la prensa - Efecto Cocuyo")
	if title != "Maduro habla - con la prensa" || source != "Efecto Cocuyo" {
		t.Errorf("got %q / %q", title, source)
	}
	title, source = splitSource("Sin fuente")
	if title != "Sin fuente" || source != "" {
		t.Errorf("got %q / %q", title, source)
	}
}
