package news

import (
	"fmt"
	"strings"
	"time"
)

// Headline is a single search result, optionally enriched with the article body.
type Headline struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source,omitempty"`
	Published   time.Time `json:"published,omitempty"`

	Category string   `json:"category,omitempty"` // classifier label
	Figures  []string `json:"figures,omitempty"`
}

// Text returns title and the best available body text for matching.
func (h Headline) Text() string {
	body := h.Body
	if body == "" {
		body = h.Description
	}
	return strings.TrimSpace(h.Title + " " + body)
}

// Window is a coarse recency filter applied to the search query.
type Window string

const (
	Day   Window = "day"
	Week  Window = "week"
	Month Window = "month"
)

func Windows() []Window {
	return []Window{Day, Week, Month}
}

// ParseWindow accepts the English name, the Spanish label or the one-letter code.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "hoy", "d", "24h":
		return Day, nil
	case "week", "semana", "w", "7d":
		return Week, nil
	case "month", "mes", "m", "30d":
		return Month, nil
	}
	return "", fmt.Errorf("unknown window %q (valid: hoy, semana, mes)", s)
}

// Label is the Spanish name shown in the dashboard.
func (w Window) Label() string {
	switch w {
	case Week:
		return "Semana"
	case Month:
		return "Mes"
	}
	return "Hoy"
}

// When is the Google News RSS recency operator value.
func (w Window) When() string {
	switch w {
	case Week:
		return "7d"
	case Month:
		return "30d"
	}
	return "1d"
}

// QDR is the Google web search tbs=qdr: code.
func (w Window) QDR() string {
	switch w {
	case Week:
		return "w"
	case Month:
		return "m"
	}
	return "d"
}

// Duration is the maximum age of a headline inside the window.
func (w Window) Duration() time.Duration {
	switch w {
	case Week:
		return 7 * 24 * time.Hour
	case Month:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Truncate cuts s to n runes, ending with "..." when shortened.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
