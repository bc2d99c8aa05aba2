package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/retry"
)

const GoogleNewsRSS = "https://news.google.com/rss/search"

// RSSSource queries the Google News RSS search endpoint.
type RSSSource struct {
	BaseURL   string
	Language  string // hl, e.g. es-419
	Region    string // gl, e.g. VE
	UserAgent string
	Client    *http.Client
	Retry     retry.RetryConfig
	Now       func() time.Time
}

func NewRSSSource(client *http.Client, language, region string, rc retry.RetryConfig) *RSSSource {
	return &RSSSource{
		BaseURL:  GoogleNewsRSS,
		Language: language,
		Region:   region,
		Client:   client,
		Retry:    rc,
		Now:      time.Now,
	}
}

// SearchURL builds the feed URL for a query.
func (s *RSSSource) SearchURL(q Query) string {
	params := url.Values{}
	params.Set("q", BuildQuery(q.Topic, q.Keywords, q.Window))
	params.Set("hl", s.Language)
	params.Set("gl", s.Region)
	params.Set("ceid", s.Region+":"+s.Language)
	return s.BaseURL + "?" + params.Encode()
}

func (s *RSSSource) Search(ctx context.Context, q Query) ([]news.Headline, error) {
	feedURL := s.SearchURL(q)

	var body []byte
	err := retry.WithRetry(ctx, s.Retry, func(ctx context.Context) error {
		var err error
		body, err = get(ctx, s.Client, feedURL, s.UserAgent, "rss search")
		return err
	})
	if err != nil {
		return []news.Headline{}, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return []news.Headline{}, fault.Parse("rss search", fmt.Errorf("parse feed: %w", err))
	}

	out := s.toHeadlines(feed.Items, q.Window)
	out, dropped := news.Dedup(out, nil)
	if dropped > 0 {
		logger.Debug("duplicate links suppressed", "topic", q.Topic, "dropped", dropped)
	}
	return news.Limit(out, q.Limit), nil
}

func (s *RSSSource) toHeadlines(items []*gofeed.Item, window news.Window) []news.Headline {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	// Small slack: feeds round publication times.
	cutoff := now().Add(-window.Duration() - time.Hour)

	out := make([]news.Headline, 0, len(items))
	for _, item := range items {
		if item == nil || item.Title == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}

		title, source := splitSource(plainText(item.Title))
		h := news.Headline{
			Title:       title,
			Link:        item.Link,
			Description: plainText(item.Description),
			Source:      source,
		}
		if item.PublishedParsed != nil {
			h.Published = *item.PublishedParsed
		}
		// Google News descriptions repeat the title and outlet only.
		if h.Description == title || h.Description == title+" "+source {
			h.Description = ""
		}
		out = append(out, h)
	}
	return out
}
