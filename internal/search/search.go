// Package search turns a category topic and a recency window into headline
// records. The fragile part (someone else's markup) lives behind Source.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/news"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxQueryKeywords = 6
	maxBodyBytes     = 5 << 20
)

// Query is one category search.
type Query struct {
	Topic    string
	Keywords []string
	Window   news.Window
	Limit    int
}

// Source returns headline records for a query.
type Source interface {
	Search(ctx context.Context, q Query) ([]news.Headline, error)
}

// QueryText joins the topic with an OR group of its first keywords:
//
//	Venezuela petróleo (pdvsa OR chevron OR "exportación de gas")
func QueryText(topic string, keywords []string) string {
	topic = strings.TrimSpace(topic)
	var terms []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.ContainsAny(k, " \t") {
			k = `"` + strings.ReplaceAll(k, `"`, "") + `"`
		}
		terms = append(terms, k)
		if len(terms) == maxQueryKeywords {
			break
		}
	}
	if len(terms) == 0 {
		return topic
	}
	group := "(" + strings.Join(terms, " OR ") + ")"
	if topic == "" {
		return group
	}
	return topic + " " + group
}

// BuildQuery adds the Google News recency operator to QueryText.
func BuildQuery(topic string, keywords []string, window news.Window) string {
	return QueryText(topic, keywords) + " when:" + window.When()
}

// get performs one GET and tags every failure with a fault kind.
func get(ctx context.Context, client *http.Client, rawURL, userAgent, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Parse(op, fmt.Errorf("build request: %w", err))
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "es-419,es;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fault.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.FromStatus(op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fault.Network(op, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// plainText flattens an HTML fragment to single-spaced text.
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// splitSource separates Google News' "Title - Outlet" suffix.
func splitSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 || idx+3 >= len(title) {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}
