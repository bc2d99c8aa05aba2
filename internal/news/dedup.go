package news

import (
	"net/url"
	"strings"
)

// NormalizeLink makes links that differ only in scheme/host case, fragment or
// trailing slash compare equal.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(link, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Seen is a set of normalised links shared by every section of one brief.
type Seen map[string]struct{}

// Add records link and reports whether it was new.
func (s Seen) Add(link string) bool {
	key := NormalizeLink(link)
	if _, dup := s[key]; dup {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Dedup drops headlines whose link was already seen, keeping order.
// A nil seen set dedups within the slice only. Headlines without a link
// are dropped. The second return value is the number of dropped items.
func Dedup(items []Headline, seen Seen) ([]Headline, int) {
	if seen == nil {
		seen = Seen{}
	}
	out := make([]Headline, 0, len(items))
	dropped := 0
	for _, h := range items {
		if h.Link == "" || !seen.Add(h.Link) {
			dropped++
			continue
		}
		out = append(out, h)
	}
	return out, dropped
}

// Limit caps items at max; max <= 0 means no cap.
func Limit(items []Headline, max int) []Headline {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
