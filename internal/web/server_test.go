package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/vzradar/internal/analysis"
	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/news"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBriefer struct {
	last briefing.Request
	err  error
}

func (f *fakeBriefer) Run(ctx context.Context, req briefing.Request) (*briefing.Report, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &briefing.Report{
		ID:          uuid.New(),
		Window:      req.Window,
		GeneratedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Sections: []briefing.Section{
			{
				Category: classify.Category{Key: "energia", Label: "Energía"},
				Headlines: []news.Headline{
					{Title: "PDVSA exporta <gas>", Link: "https://elpitazo.net/gas", Source: "El Pitazo", Category: "Energía", Description: "Envíos a Colombia"},
				},
				Figures:  []string{"50 millones"},
				Analysis: analysis.Analysis{Text: "La exportación de gas se reactiva."},
			},
			{
				Category: classify.Category{Key: "ddhh", Label: "Derechos Humanos"},
				Notice:   fault.NetworkError,
				Analysis: analysis.Analysis{Kind: fault.RateLimited},
			},
		},
	}, nil
}

func newTestServer(t *testing.T, b Briefer) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	s, err := New(b, m, classify.DefaultCategories())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, m
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestDashboardForm(t *testing.T) {
	s, _ := newTestServer(t, &fakeBriefer{})
	w := get(t, s, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Hoy", "Semana", "Mes", `value="energia"`, "Leer artículos completos"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestBriefPage(t *testing.T) {
	b := &fakeBriefer{}
	s, _ := newTestServer(t, b)
	w := get(t, s, "/brief?window=semana&bodies=on&category=energia")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if b.last.Window != news.Week || !b.last.FetchBodies || len(b.last.Categories) != 1 {
		t.Errorf("request not parsed: %+v", b.last)
	}
	body := w.Body.String()
	for _, want := range []string{
		"La exportación de gas se reactiva.",
		"PDVSA exporta &lt;gas&gt;",
		`class="badge energia"`,
		"50 millones",
		fault.Message(fault.NetworkError),
		fault.Message(fault.RateLimited),
		`href="/api/brief?bodies=on&amp;category=energia&amp;window=week"`,
		`href="/feed.rss?bodies=on&amp;category=energia&amp;window=week"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRequestQueryRoundTrip(t *testing.T) {
	req := briefing.Request{Window: news.Month, FetchBodies: true, Categories: []string{"energia", "Derechos Humanos"}}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/brief?"+requestQuery(req), nil)

	got, err := parseRequest(c)
	if err != nil {
		t.Fatalf("parseRequest: %v", err)
	}
	if got.Window != req.Window || !got.FetchBodies || strings.Join(got.Categories, "|") != "energia|Derechos Humanos" {
		t.Errorf("request changed on the way back: %+v", got)
	}
}

func TestBriefBadWindow(t *testing.T) {
	s, _ := newTestServer(t, &fakeBriefer{})
	if w := get(t, s, "/brief?window=siglo"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAPIBrief(t *testing.T) {
	s, _ := newTestServer(t, &fakeBriefer{})
	w := get(t, s, "/api/brief?window=hoy")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var report briefing.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Window != news.Day || len(report.Sections) != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Sections[1].Analysis.Kind != fault.RateLimited {
		t.Errorf("error kind should be exposed, got %+v", report.Sections[1].Analysis)
	}
}

func TestAPIBriefErrors(t *testing.T) {
	s, _ := newTestServer(t, &fakeBriefer{err: fmt.Errorf("%w %q", briefing.ErrUnknownCategory, "x")})
	if w := get(t, s, "/api/brief?category=x"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	s, _ = newTestServer(t, &fakeBriefer{err: errors.New("search unknown category index")})
	if w := get(t, s, "/api/brief"); w.Code != http.StatusInternalServerError {
		t.Errorf("only the sentinel maps to 400, got %d", w.Code)
	}
	s, _ = newTestServer(t, &fakeBriefer{err: context.DeadlineExceeded})
	if w := get(t, s, "/api/brief"); w.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", w.Code)
	}
}

func TestFeed(t *testing.T) {
	s, _ := newTestServer(t, &fakeBriefer{})
	w := get(t, s, "/feed.rss?window=mes")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("unexpected content type %q", ct)
	}
	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("feed does not parse: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Link != "https://elpitazo.net/gas" {
		t.Errorf("unexpected items: %+v", feed.Items)
	}
	if !strings.Contains(feed.Title, "Mes") {
		t.Errorf("title should carry the window label, got %q", feed.Title)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, m := newTestServer(t, &fakeBriefer{})
	if w := get(t, s, "/health"); w.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", w.Code)
	}
	m.SetError("feed down")
	w := get(t, s, "/health")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "feed down") {
		t.Errorf("expected 503 with last error, got %d %s", w.Code, w.Body.String())
	}

	m.IncrementSearches()
	w = get(t, s, "/metrics")
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["searches_run"] != float64(1) {
		t.Errorf("unexpected searches_run %v", stats["searches_run"])
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Energía":          "energia",
		"Derechos Humanos": "derechos-humanos",
		"Economía":         "economia",
		"General":          "general",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
