package web

import (
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/news"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Windows     []option
	Categories  []option
	FetchBodies bool
	Report      *briefing.Report
	Error       string
	// APIURL and FeedURL repeat the request shown on the page.
	APIURL  template.URL
	FeedURL template.URL
}

// requestQuery encodes req the way parseRequest reads it back.
func requestQuery(req briefing.Request) string {
	q := url.Values{}
	if req.Window != "" {
		q.Set("window", string(req.Window))
	}
	if req.FetchBodies {
		q.Set("bodies", "on")
	}
	for _, name := range req.Categories {
		q.Add("category", name)
	}
	return q.Encode()
}

func (s *Server) page(req briefing.Request, report *briefing.Report, errMsg string) pageData {
	data := pageData{FetchBodies: req.FetchBodies, Report: report, Error: errMsg}
	if query := requestQuery(req); query != "" {
		data.APIURL = template.URL("/api/brief?" + query)
		data.FeedURL = template.URL("/feed.rss?" + query)
	} else {
		data.APIURL, data.FeedURL = "/api/brief", "/feed.rss"
	}
	for _, w := range news.Windows() {
		data.Windows = append(data.Windows, option{Value: string(w), Label: w.Label(), Selected: w == req.Window})
	}
	selected := map[string]bool{}
	for _, name := range req.Categories {
		selected[strings.ToLower(name)] = true
	}
	for _, cat := range s.Categories {
		data.Categories = append(data.Categories, option{
			Value:    cat.Key,
			Label:    cat.Label,
			Selected: selected[strings.ToLower(cat.Key)] || selected[strings.ToLower(cat.Label)],
		})
	}
	return data
}

var templateFuncs = template.FuncMap{
	"truncate": news.Truncate,
	"slug":     slug,
	"when": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	},
	"seconds": func(d time.Duration) string {
		return d.Round(100 * time.Millisecond).String()
	},
}

// slug turns a category label into a CSS class fragment: "Energía" -> "energia".
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'á':
			r = 'a'
		case 'é':
			r = 'e'
		case 'í':
			r = 'i'
		case 'ó':
			r = 'o'
		case 'ú', 'ü':
			r = 'u'
		case 'ñ':
			r = 'n'
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
