// Package telegram posts finished briefs to a chat or channel.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/retry"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	// MaxMessageRunes is Telegram's limit for one text message.
	MaxMessageRunes = 4096
)

type Client struct {
	Token   string
	ChatID  string
	BaseURL string
	HTTP    *http.Client
	Retry   retry.RetryConfig
	Metrics *metrics.Metrics
}

func New(token, chatID string, httpClient *http.Client, rc retry.RetryConfig) *Client {
	return &Client{
		Token:   token,
		ChatID:  chatID,
		BaseURL: DefaultBaseURL,
		HTTP:    httpClient,
		Retry:   rc,
	}
}

// SendMessage sends text message to Telegram chat/channel with retry logic
func (c *Client) SendMessage(ctx context.Context, text string) error {
	rc := c.Retry
	if rc.Retryable == nil {
		rc.Retryable = retry.Transient
	}
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("Error sending to Telegram, retrying", "attempt", attempt, "wait", delay, "error", err)
	}

	err := retry.WithRetry(ctx, rc, func(ctx context.Context) error {
		return c.sendMessageOnce(ctx, text)
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if c.Metrics != nil {
		c.Metrics.IncrementTelegramMessagesSent()
	}
	return nil
}

// sendMessageOnce does one try to send message
func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.BaseURL, "/"), c.Token)

	payload := map[string]interface{}{
		"chat_id":                  c.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fault.Parse("telegram", fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fault.Parse("telegram", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fault.Network("telegram", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fault.FromStatus("telegram", resp.StatusCode)
	}
	return nil
}

// SendReport posts the report as one or more messages, in order.
func (c *Client) SendReport(ctx context.Context, report *briefing.Report) error {
	messages := FormatReport(report, MaxMessageRunes)
	for i, msg := range messages {
		if err := c.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("message %d/%d: %w", i+1, len(messages), err)
		}
	}
	logger.Info("Brief sent to Telegram", "messages", len(messages), "brief_id", report.ID.String())
	return nil
}

// FormatReport renders the report as Telegram HTML messages no longer than
// maxRunes each. Sections are never split across messages unless a single
// section is itself too long, in which case its headline list is cut.
func FormatReport(report *briefing.Report, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = MaxMessageRunes
	}
	header := fmt.Sprintf("🇻🇪 <b>Radar Venezuela: %s</b>\n%s\n",
		html.EscapeString(report.Window.Label()), report.GeneratedAt.Format("02/01/2006 15:04"))

	var messages []string
	current := header
	for _, sec := range report.Sections {
		block := fitRunes(formatSection(sec), maxRunes)
		if runeLen(current)+runeLen(block)+1 > maxRunes {
			messages = append(messages, strings.TrimSpace(current))
			current = ""
		}
		current += "\n" + block
	}
	if strings.TrimSpace(current) != "" {
		messages = append(messages, strings.TrimSpace(current))
	}
	return messages
}

func formatSection(sec briefing.Section) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(sec.Category.Label))
	if sec.Notice != "" {
		fmt.Fprintf(&sb, "⚠️ <i>%s</i>\n", html.EscapeString(sec.NoticeMessage()))
	}
	if len(sec.Figures) > 0 {
		fmt.Fprintf(&sb, "📊 %s\n", html.EscapeString(strings.Join(sec.Figures, " · ")))
	}
	if text := sec.Analysis.Display(); text != "" {
		fmt.Fprintf(&sb, "%s\n", html.EscapeString(text))
	}
	for _, h := range sec.Headlines {
		fmt.Fprintf(&sb, "• <a href=\"%s\">%s</a>", html.EscapeString(h.Link), html.EscapeString(news.Truncate(h.Title, 140)))
		if h.Source != "" {
			fmt.Fprintf(&sb, " <i>(%s)</i>", html.EscapeString(h.Source))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// fitRunes drops whole trailing lines until s fits in max runes. Lines are
// dropped rather than cut so no HTML tag is left open.
func fitRunes(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	lines := strings.Split(s, "\n")
	for len(lines) > 1 && runeLen(strings.Join(lines, "\n")) > max {
		lines = lines[:len(lines)-1]
	}
	out := strings.Join(lines, "\n")
	if runeLen(out) <= max {
		return out
	}
	// A single oversized line: fall back to escaped plain text.
	plain := html.UnescapeString(stripTags(out))
	for n := max; n > 0; {
		escaped := html.EscapeString(news.Truncate(plain, n))
		size := runeLen(escaped)
		if size <= max {
			return escaped
		}
		// Entities can make the escaped text several times longer than n.
		next := n * max / size
		if next >= n {
			next = n - 1
		}
		n = next
	}
	return ""
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func runeLen(s string) int {
	return len([]rune(s))
}
