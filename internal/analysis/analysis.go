// Package analysis turns one category's headlines into a short narrative
// produced by the configured model.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/vzradar/internal/cache"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/fault"
	"github.com/deusflow/vzradar/internal/llm"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/news"
	"github.com/deusflow/vzradar/internal/ratelimit"
	"github.com/deusflow/vzradar/internal/retry"
)

// NoHeadlines is shown when a section has nothing to analyse.
const NoHeadlines = "Sin noticias relevantes para este periodo."

const defaultMaxHeadlines = 10

// Analysis is the outcome of one summarize call. Exactly one of Text or Kind
// is set.
type Analysis struct {
	Text   string     `json:"text,omitempty"`
	Kind   fault.Kind `json:"error_kind,omitempty"`
	Cached bool       `json:"cached,omitempty"`
}

func (a Analysis) Failed() bool {
	return a.Kind != ""
}

// Display is the text to show: the analysis, or the fallback for its kind.
func (a Analysis) Display() string {
	if a.Failed() {
		return fault.Message(a.Kind)
	}
	return a.Text
}

// Summarizer calls the model with retry, budget and cache. Cache, Budget and
// Metrics are optional.
type Summarizer struct {
	Gen          llm.Generator
	Cache        cache.Store
	Budget       *ratelimit.Budget
	Metrics      *metrics.Metrics
	Retry        retry.RetryConfig
	TTL          time.Duration
	MaxHeadlines int
}

func (s *Summarizer) Summarize(ctx context.Context, cat classify.Category, window news.Window, items []news.Headline) Analysis {
	if len(items) == 0 {
		return Analysis{Text: NoHeadlines}
	}

	key := cache.Key("analysis", string(window), cat.Topic)
	if s.Cache != nil {
		if text, ok := s.Cache.Get(ctx, key); ok {
			logger.Debug("analysis cache hit", "category", cat.Key, "window", window)
			if s.Budget != nil {
				s.Budget.RecordCacheHit()
			}
			if s.Metrics != nil {
				s.Metrics.IncrementAnalysisCacheHits()
			}
			return Analysis{Text: text, Cached: true}
		}
	}

	text, err := s.generate(ctx, BuildPrompt(cat, window, items, s.maxHeadlines()))
	if err != nil {
		kind := fault.KindOf(err)
		logger.Warn("analysis failed, using fallback", "category", cat.Key, "kind", kind, "error", err)
		if s.Metrics != nil {
			s.Metrics.IncrementAnalysisFallbacks()
			s.Metrics.SetError(err.Error())
		}
		return Analysis{Kind: kind}
	}

	if s.Cache != nil && s.TTL > 0 {
		s.Cache.Set(ctx, key, text, s.TTL)
	}
	if s.Metrics != nil {
		s.Metrics.IncrementAnalyses()
	}
	return Analysis{Text: text}
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.Gen == nil {
		return "", fault.New(fault.UpstreamUnavailable, "analysis", errors.New("no model configured"))
	}

	rc := s.Retry
	transient := rc.Retryable
	if transient == nil {
		transient = retry.Transient
	}
	// The budget resets daily, so an exhausted budget is final.
	rc.Retryable = func(err error) bool {
		return !errors.Is(err, ratelimit.ErrBudgetExhausted) && transient(err)
	}
	onRetry := rc.OnRetry
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("model call failed, retrying", "attempt", attempt, "wait", delay, "kind", fault.KindOf(err))
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	var text string
	err := retry.WithRetry(ctx, rc, func(ctx context.Context) error {
		if s.Budget != nil {
			if err := s.Budget.Use(); err != nil {
				return fault.New(fault.RateLimited, "analysis", err)
			}
		}
		out, err := s.Gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = Clean(out)
		if text == "" {
			return fault.Parse("analysis", errors.New("model returned only boilerplate"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *Summarizer) maxHeadlines() int {
	if s.MaxHeadlines > 0 {
		return s.MaxHeadlines
	}
	return defaultMaxHeadlines
}

// BuildPrompt numbers the headlines under a fixed instruction block.
func BuildPrompt(cat classify.Category, window news.Window, items []news.Headline, max int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Eres un analista de inteligencia estratégica especializado en Venezuela.\n")
	fmt.Fprintf(&sb, "Tema: %s (%s)\n", cat.Label, cat.Topic)
	fmt.Fprintf(&sb, "Periodo: %s\n\n", window.Label())
	sb.WriteString("Titulares:\n")

	for i, h := range news.Limit(items, max) {
		fmt.Fprintf(&sb, "%d. %s", i+1, h.Title)
		if h.Source != "" {
			fmt.Fprintf(&sb, " (%s)", h.Source)
		}
		sb.WriteString("\n")
		detail := h.Body
		if detail == "" {
			detail = h.Description
		}
		if detail = strings.TrimSpace(detail); detail != "" {
			fmt.Fprintf(&sb, "   %s\n", news.Truncate(strings.Join(strings.Fields(detail), " "), 300))
		}
		if len(h.Figures) > 0 {
			fmt.Fprintf(&sb, "   Cifras: %s\n", strings.Join(h.Figures, "; "))
		}
	}

	sb.WriteString(`
Instrucciones:
- Escribe un análisis estratégico de 3 a 4 oraciones en español.
- Destaca tendencias, riesgos y cifras concretas mencionadas.
- No uses saludos, despedidas ni frases introductorias.
- No inventes datos que no aparezcan en los titulares.`)
	return sb.String()
}
