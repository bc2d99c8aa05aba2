// Package scraper fetches article pages and pulls out the body text.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/retry"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; vzradar/1.0; +https://github.com/deusflow/vzradar)"
	maxPageBytes = 4 << 20
	minBodyChars = 100
	maxBodyChars = 1800
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Extractor downloads and parses article pages.
type Extractor struct {
	Client *http.Client
	Retry  retry.RetryConfig
	// Pause between articles in Enrich, so outlets are not hammered.
	Pause time.Duration
}

func New(client *http.Client, rc retry.RetryConfig) *Extractor {
	return &Extractor{Client: client, Retry: rc, Pause: 500 * time.Millisecond}
}

// Extract gets full text of article by URL
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*ArticleContent, error) {
	var doc *goquery.Document
	err := retry.WithRetry(ctx, e.Retry, func(ctx context.Context) error {
		var err error
		doc, err = e.fetch(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	content := extractContentBySource(doc, pageURL)
	if content == "" {
		return nil, fault.Parse("extract article", fmt.Errorf("no content found in %s", pageURL))
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     pageURL,
	}, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fault.Parse("fetch article", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "es-419,es;q=0.9")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fault.Network("fetch article", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.FromStatus("fetch article", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fault.Parse("fetch article", fmt.Errorf("parse html: %w", err))
	}
	return doc, nil
}

// Enrich fills Body for up to max headlines. Failures are logged and skipped;
// the headline keeps its feed description. It returns how many bodies were set.
func (e *Extractor) Enrich(ctx context.Context, items []news.Headline, max int) int {
	extracted, fetched := 0, 0
	for i := range items {
		if i >= max {
			break
		}
		if ctx.Err() != nil {
			return extracted
		}
		if IsRedirectLink(items[i].Link) {
			logger.Debug("Skipping aggregator redirect link", "url", items[i].Link)
			continue
		}
		if fetched > 0 && !e.wait(ctx) {
			return extracted
		}
		fetched++

		logger.Debug("Fetching article body", "n", i+1, "total", min(max, len(items)), "url", items[i].Link)

		article, err := e.Extract(ctx, items[i].Link)
		if err != nil {
			logger.Warn("Can't get article content", "url", items[i].Link, "kind", fault.KindOf(err), "error", err)
			continue
		}
		if len([]rune(article.Content)) < minBodyChars {
			logger.Debug("Article content too short", "url", items[i].Link)
			continue
		}
		items[i].Body = article.Content
		extracted++
	}
	return extracted
}

// wait sleeps for the pause between article requests. It reports false when
// ctx ends first.
func (e *Extractor) wait(ctx context.Context) bool {
	if e.Pause <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(e.Pause):
		return true
	}
}

// redirectHosts serve an interstitial page instead of the article, so their
// links are never scraped.
var redirectHosts = []string{"news.google.com"}

// IsRedirectLink reports whether link points at an aggregator redirect
// rather than the outlet's own page.
func IsRedirectLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range redirectHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// outletSelectors lists body selectors for outlets that show up often in
// Venezuelan results. Keys are host suffixes.
var outletSelectors = map[string][]string{
	"elpitazo.net":        {".td-post-content p", ".entry-content p", "article p"},
	"efectococuyo.com":    {".entry-content p", ".post-content p", "article p"},
	"bancaynegocios.com":  {".td-post-content p", ".entry-content p", "article p"},
	"elnacional.com":      {".article-body p", ".article-content p", "article p"},
	"talcualdigital.com":  {".entry-content p", ".td-post-content p", "article p"},
	"elestimulo.com":      {".entry-content p", "article p"},
	"eldiario.com":        {".entry-content p", ".article-content p", "article p"},
	"descifrado.com":      {".entry-content p", ".article-body p", "article p"},
	"ultimasnoticias.com": {".entry-content p", ".td-post-content p", "article p"},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// extractContentBySource gets content by news site
func extractContentBySource(doc *goquery.Document, pageURL string) string {
	if selectors := selectorsFor(pageURL); selectors != nil {
		if content := cleanContent(collectParagraphs(doc, selectors, 10, 1)); content != "" {
			return content
		}
	}
	return cleanContent(collectParagraphs(doc, genericSelectors, 20, 3))
}

func selectorsFor(pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for suffix, selectors := range outletSelectors {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return selectors
		}
	}
	return nil
}

// collectParagraphs tries selectors in order and stops at the first one that
// yields at least enough paragraphs longer than minLen.
func collectParagraphs(doc *goquery.Document, selectors []string, minLen, enough int) string {
	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len([]rune(text)) > minLen {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= enough {
			break
		}
	}
	return strings.Join(paragraphs, "\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", ".entry-title", ".article-title", ".headline", "title"} {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

var junkPhrases = []string{
	"Lee también:", "Lea también:", "Te puede interesar:", "Le puede interesar:",
	"Lee más:", "Siga leyendo:", "Únete a nuestro canal de Telegram",
	"Síguenos en Twitter", "Síguenos en Instagram", "Síguenos en Google News",
	"Suscríbete a nuestro boletín", "Haz clic aquí", "Compartir en WhatsApp",
}

var junkIndicators = []string{
	"cookie", "suscríbete", "suscribete", "publicidad", "newsletter",
	"síguenos", "siguenos", "whatsapp", "telegram", "todos los derechos reservados",
	"haz clic", "lee también", "lea también", "te puede interesar",
}

// cleanContent drops junk lines and inline phrases, then joins sentence fragments
// into paragraphs and trims the result to whole paragraphs.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}
	var paragraphs []string
	var current strings.Builder
	flush := func() {
		p := strings.Join(strings.Fields(current.String()), " ")
		if len([]rune(p)) > 30 {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 8 {
			flush()
			continue
		}
		if isJunk(line) {
			continue
		}
		for _, phrase := range junkPhrases {
			line = strings.ReplaceAll(line, phrase, "")
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") || strings.HasSuffix(line, "»") {
			flush()
		}
	}
	flush()

	// Limit length, keep full paragraphs
	var kept []string
	total := 0
	for _, p := range paragraphs {
		n := len([]rune(p))
		if total > 0 && total+n > maxBodyChars {
			break
		}
		kept = append(kept, p)
		total += n + 2
	}
	return strings.Join(kept, "\n\n")
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
