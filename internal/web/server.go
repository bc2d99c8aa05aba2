// Package web serves the dashboard and its JSON, RSS and monitoring
// endpoints.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"

	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/ratelimit"
)

//go:embed templates/*.html
var templateFS embed.FS

// Briefer runs one dashboard request.
type Briefer interface {
	Run(ctx context.Context, req briefing.Request) (*briefing.Report, error)
}

type Server struct {
	Briefer    Briefer
	Metrics    *metrics.Metrics
	Budget     *ratelimit.Budget
	Categories []classify.Category
	// Timeout bounds one brief; 0 means the client's context only.
	Timeout time.Duration
	// BaseURL is used for absolute links in the RSS output.
	BaseURL string

	engine *gin.Engine
}

func New(b Briefer, m *metrics.Metrics, cats []classify.Category) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{Briefer: b, Metrics: m, Categories: cats}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.dashboard)
	r.GET("/brief", s.brief)
	r.GET("/api/brief", s.apiBrief)
	r.GET("/feed.rss", s.feed)
	r.GET("/health", s.health)
	r.GET("/metrics", s.stats)

	s.engine = r
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// parseRequest reads window, bodies and category from the query string.
func parseRequest(c *gin.Context) (briefing.Request, error) {
	window, err := news.ParseWindow(c.Query("window"))
	if err != nil {
		return briefing.Request{}, err
	}
	req := briefing.Request{Window: window}
	switch strings.ToLower(c.Query("bodies")) {
	case "1", "true", "on", "si", "sí":
		req.FetchBodies = true
	}
	for _, name := range c.QueryArray("category") {
		if name = strings.TrimSpace(name); name != "" {
			req.Categories = append(req.Categories, name)
		}
	}
	return req, nil
}

func (s *Server) run(c *gin.Context, req briefing.Request) (*briefing.Report, error) {
	ctx := c.Request.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Briefer.Run(ctx, req)
}

func (s *Server) dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", s.page(briefing.Request{Window: news.Day}, nil, ""))
}

func (s *Server) brief(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.HTML(http.StatusBadRequest, "dashboard.html", s.page(briefing.Request{Window: news.Day}, nil, err.Error()))
		return
	}
	report, err := s.run(c, req)
	if err != nil {
		logger.Error("brief failed", "error", err)
		c.HTML(statusFor(err), "dashboard.html", s.page(req, nil, "No fue posible generar el informe: "+err.Error()))
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", s.page(req, report, ""))
}

func (s *Server) apiBrief(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := s.run(c, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) feed(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.run(c, req)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	rss, err := ReportFeed(report, s.BaseURL).ToRss()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *Server) health(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	stats := s.Metrics.GetStats()

	status, code := "ok", http.StatusOK
	if !s.Metrics.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) stats(c *gin.Context) {
	stats := map[string]interface{}{}
	if s.Metrics != nil {
		stats = s.Metrics.GetStats()
	}
	if s.Budget != nil {
		for k, v := range s.Budget.Stats() {
			stats[k] = v
		}
	}
	c.JSON(http.StatusOK, stats)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, briefing.ErrUnknownCategory):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ReportFeed converts a report to an RSS feed, one item per headline.
func ReportFeed(report *briefing.Report, baseURL string) *feeds.Feed {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	feed := &feeds.Feed{
		Title:       "Radar Venezuela: " + report.Window.Label(),
		Link:        &feeds.Link{Href: baseURL + "/brief?window=" + string(report.Window)},
		Description: "Titulares y análisis estratégico sobre Venezuela",
		Created:     report.GeneratedAt,
		Id:          report.ID.String(),
	}
	for _, sec := range report.Sections {
		for _, h := range sec.Headlines {
			created := h.Published
			if created.IsZero() {
				created = report.GeneratedAt
			}
			desc := h.Description
			if desc == "" {
				desc = news.Truncate(h.Body, 400)
			}
			item := &feeds.Item{
				Title:       h.Title,
				Link:        &feeds.Link{Href: h.Link},
				Description: desc,
				Id:          h.Link,
				Created:     created,
			}
			if h.Source != "" {
				item.Author = &feeds.Author{Name: h.Source}
			}
			feed.Items = append(feed.Items, item)
		}
	}
	return feed
}
