// Package briefing runs one dashboard request: for every category it
// searches, deduplicates, optionally reads article bodies, classifies,
// extracts figures and asks for an analysis. Nothing outlives the Report.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/vzradar/internal/analysis"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/search"
)

// ErrUnknownCategory is returned by Run when a requested category is not configured.
var ErrUnknownCategory = errors.New("unknown category")

const (
	figuresPerHeadline = 5
	figuresPerSection  = 8
)

// Request carries everything one run needs; there is no shared session state.
type Request struct {
	Window      news.Window
	FetchBodies bool
	// Categories selects by key or label; empty means all.
	Categories []string
}

type Section struct {
	Category  classify.Category `json:"category"`
	Query     string            `json:"query"`
	Headlines []news.Headline   `json:"headlines"`
	Figures   []string          `json:"figures,omitempty"`
	Analysis  analysis.Analysis `json:"analysis"`
	// Notice is set when the search step failed; Headlines is then empty.
	Notice fault.Kind `json:"notice,omitempty"`
}

// NoticeMessage is the user-facing text for a failed search, if any.
func (s Section) NoticeMessage() string {
	return fault.Message(s.Notice)
}

type Report struct {
	ID          uuid.UUID     `json:"id"`
	Window      news.Window   `json:"window"`
	GeneratedAt time.Time     `json:"generated_at"`
	Sections    []Section     `json:"sections"`
	Duration    time.Duration `json:"duration_ns"`
}

// Headlines flattens all sections in display order.
func (r *Report) Headlines() []news.Headline {
	var out []news.Headline
	for _, s := range r.Sections {
		out = append(out, s.Headlines...)
	}
	return out
}

// Summarizer produces the analysis for one section.
type Summarizer interface {
	Summarize(ctx context.Context, cat classify.Category, window news.Window, items []news.Headline) analysis.Analysis
}

// Enricher fills article bodies in place and reports how many it set.
type Enricher interface {
	Enrich(ctx context.Context, items []news.Headline, max int) int
}

type Service struct {
	Source         search.Source
	Classifier     *classify.Classifier
	Summarizer     Summarizer
	Extractor      Enricher // nil disables body fetching
	Metrics        *metrics.Metrics
	MaxPerCategory int
	MaxBodies      int
	Now            func() time.Time
}

// Run executes the request sequentially, one category after another.
// Search and analysis failures end up in the sections; Run itself only fails
// for unknown categories or a cancelled context.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	cats, err := s.selectCategories(req.Categories)
	if err != nil {
		return nil, err
	}
	if req.Window == "" {
		req.Window = news.Day
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	start := now()
	report := &Report{
		ID:          uuid.New(),
		Window:      req.Window,
		GeneratedAt: start,
	}
	log := logger.With("brief_id", report.ID.String(), "window", req.Window)
	log.Info("Starting brief", "categories", len(cats), "fetch_bodies", req.FetchBodies)

	seen := news.Seen{}
	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("brief cancelled: %w", err)
		}
		section := s.runSection(ctx, cat, req, seen)
		log.Info("Section ready", "category", cat.Key, "headlines", len(section.Headlines),
			"notice", section.Notice, "analysis_kind", section.Analysis.Kind)
		report.Sections = append(report.Sections, section)
	}

	report.Duration = now().Sub(start)
	if s.Metrics != nil {
		s.Metrics.RecordBrief(report.Duration)
	}
	log.Info("Brief finished", "headlines", len(report.Headlines()), "duration", report.Duration)
	return report, nil
}

func (s *Service) runSection(ctx context.Context, cat classify.Category, req Request, seen news.Seen) Section {
	q := search.Query{
		Topic:    cat.Topic,
		Keywords: cat.Keywords,
		Window:   req.Window,
		Limit:    s.MaxPerCategory,
	}
	section := Section{
		Category: cat,
		Query:    search.BuildQuery(q.Topic, q.Keywords, q.Window),
	}

	items, err := s.Source.Search(ctx, q)
	if s.Metrics != nil {
		s.Metrics.IncrementSearches()
	}
	if err != nil {
		section.Notice = fault.KindOf(err)
		logger.Warn("Search failed", "category", cat.Key, "kind", section.Notice, "error", err)
		if s.Metrics != nil {
			s.Metrics.IncrementSearchFailures()
			s.Metrics.SetError(err.Error())
		}
	}

	items, dropped := news.Dedup(items, seen)
	if s.Metrics != nil {
		s.Metrics.AddDuplicatesFiltered(dropped)
		s.Metrics.AddHeadlines(len(items))
	}

	if req.FetchBodies && s.Extractor != nil && len(items) > 0 {
		n := s.Extractor.Enrich(ctx, items, s.MaxBodies)
		if s.Metrics != nil {
			s.Metrics.AddArticlesExtracted(n)
		}
	}

	figureSeen := map[string]bool{}
	for i := range items {
		h := &items[i]
		detail := h.Body
		if detail == "" {
			detail = h.Description
		}
		if s.Classifier != nil {
			h.Category = s.Classifier.Classify(h.Title, detail)
		}
		h.Figures = news.ExtractFigures(h.Title+" "+detail, figuresPerHeadline)
		for _, f := range h.Figures {
			if len(section.Figures) < figuresPerSection && !figureSeen[f] {
				figureSeen[f] = true
				section.Figures = append(section.Figures, f)
			}
		}
	}
	section.Headlines = items

	if s.Summarizer != nil {
		section.Analysis = s.Summarizer.Summarize(ctx, cat, req.Window, items)
	}
	return section
}

func (s *Service) selectCategories(names []string) ([]classify.Category, error) {
	if s.Classifier == nil {
		return nil, fmt.Errorf("no categories configured")
	}
	if len(names) == 0 {
		return s.Classifier.Categories(), nil
	}
	out := make([]classify.Category, 0, len(names))
	for _, name := range names {
		cat, ok := s.Classifier.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownCategory, name)
		}
		out = append(out, cat)
	}
	return out, nil
}
