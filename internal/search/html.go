package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/retry"
)

const GoogleWebSearch = "https://www.google.com/search"

// resultLayout is one known markup of the news results page.
type resultLayout struct {
	block   string
	title   string
	snippet string
	source  string
}

// Google changes these class names without notice; layouts are tried in order.
var resultLayouts = []resultLayout{
	{block: "div.SoaBEf", title: "div[role=heading], .n0jPhd", snippet: ".GI74Re", source: ".MgUUmf, .NUnG9d span"},
	{block: "div.Gx5Zad", title: "div.BNeawe.vvjwJb, h3", snippet: "div.BNeawe.s3v9rd", source: "div.BNeawe.UPmit"},
	{block: "div.g", title: "h3", snippet: ".VwiC3b, .st", source: "cite"},
}

// HTMLSource scrapes the Google web search "news" tab.
type HTMLSource struct {
	BaseURL   string
	Language  string
	UserAgent string
	Client    *http.Client
	Retry     retry.RetryConfig
}

func NewHTMLSource(client *http.Client, language string, rc retry.RetryConfig) *HTMLSource {
	return &HTMLSource{
		BaseURL:  GoogleWebSearch,
		Language: language,
		Client:   client,
		Retry:    rc,
	}
}

func (s *HTMLSource) SearchURL(q Query) string {
	params := url.Values{}
	params.Set("q", QueryText(q.Topic, q.Keywords))
	params.Set("tbm", "nws")
	params.Set("tbs", "qdr:"+q.Window.QDR())
	if s.Language != "" {
		params.Set("hl", s.Language)
	}
	return s.BaseURL + "?" + params.Encode()
}

func (s *HTMLSource) Search(ctx context.Context, q Query) ([]news.Headline, error) {
	pageURL := s.SearchURL(q)

	var body []byte
	err := retry.WithRetry(ctx, s.Retry, func(ctx context.Context) error {
		var err error
		body, err = get(ctx, s.Client, pageURL, s.UserAgent, "html search")
		return err
	})
	if err != nil {
		return []news.Headline{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return []news.Headline{}, fault.Parse("html search", fmt.Errorf("parse page: %w", err))
	}

	out := ParseResults(doc)
	out, _ = news.Dedup(out, nil)
	return news.Limit(out, q.Limit), nil
}

// ParseResults extracts headlines with the first layout that yields any.
func ParseResults(doc *goquery.Document) []news.Headline {
	for _, layout := range resultLayouts {
		var out []news.Headline
		doc.Find(layout.block).Each(func(i int, block *goquery.Selection) {
			link := unwrapLink(block.Find("a[href]").First().AttrOr("href", ""))
			title := cleanText(block.Find(layout.title).First().Text())
			if link == "" || title == "" {
				return
			}
			out = append(out, news.Headline{
				Title:       title,
				Link:        link,
				Description: cleanText(block.Find(layout.snippet).First().Text()),
				Source:      cleanText(block.Find(layout.source).First().Text()),
			})
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// unwrapLink resolves Google's /url?q= redirects and drops internal links.
func unwrapLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.Path == "/url" {
		for _, key := range []string{"q", "url"} {
			if target := u.Query().Get(key); target != "" {
				return unwrapLink(target)
			}
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if host == "google.com" || strings.HasSuffix(host, ".google.com") {
		return ""
	}
	return u.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
