// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/vzradar/internal/analysis"
	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/cache"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/config"
	"github.com/deusflow/vzradar/internal/llm"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/metrics"
	"github.com/deusflow/vzradar/internal/ratelimit"
	"github.com/deusflow/vzradar/internal/retry"
	"github.com/deusflow/vzradar/internal/scraper"
	"github.com/deusflow/vzradar/internal/search"
	"github.com/deusflow/vzradar/internal/telegram"
	"github.com/deusflow/vzradar/internal/web"
)

const (
	llmTemperature = 0.4
	llmMaxTokens   = 512
	cacheCleanup   = time.Minute
)

type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Budget   *ratelimit.Budget
	Brief    *briefing.Service
	Telegram *telegram.Client // nil unless configured

	closers []io.Closer
}

// New builds every component from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		Budget:  ratelimit.NewBudget(cfg.MaxLLMRequests),
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	searchRetry := retry.RetryConfig{
		MaxAttempts: cfg.SearchRetryAttempts,
		Delay:       cfg.SearchRetryDelay,
		Backoff:     true,
		Retryable:   retry.Transient,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("search request failed, retrying", "attempt", attempt, "wait", delay, "error", err)
		},
	}

	var source search.Source
	switch cfg.SearchBackend {
	case "html":
		source = search.NewHTMLSource(httpClient, cfg.SearchLanguage, searchRetry)
	default:
		source = search.NewRSSSource(httpClient, cfg.SearchLanguage, cfg.SearchRegion, searchRetry)
	}

	gen, err := llm.New(ctx, llm.Options{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		APIKey:      cfg.APIKey(),
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}
	if c, ok := gen.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	store := a.newCache(ctx)
	a.closers = append(a.closers, store)

	summarizer := &analysis.Summarizer{
		Gen:     gen,
		Cache:   store,
		Budget:  a.Budget,
		Metrics: a.Metrics,
		TTL:     cfg.AnalysisCacheTTL,
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.LLMRetryAttempts,
			Delay:       cfg.LLMRetryDelay,
			Backoff:     true,
			MaxDelay:    time.Minute,
		},
	}

	extractor := scraper.New(httpClient, retry.RetryConfig{
		MaxAttempts: 2,
		Delay:       cfg.SearchRetryDelay,
		Retryable:   retry.Transient,
	})

	a.Brief = &briefing.Service{
		Source:         source,
		Classifier:     classify.New(cfg.Categories),
		Summarizer:     summarizer,
		Extractor:      extractor,
		Metrics:        a.Metrics,
		MaxPerCategory: cfg.MaxPerCategory,
		MaxBodies:      cfg.ScrapeMaxArticles,
	}

	if cfg.TelegramEnabled() {
		a.Telegram = telegram.New(cfg.TelegramToken, cfg.TelegramChatID, httpClient, retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Backoff:     true,
		})
		a.Telegram.Metrics = a.Metrics
	}

	logger.Info("App ready",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"search_backend", cfg.SearchBackend,
		"categories", len(cfg.Categories),
		"telegram", a.Telegram != nil)
	return a, nil
}

// newCache uses Redis when configured and reachable, memory otherwise.
func (a *App) newCache(ctx context.Context) cache.Store {
	if a.Config.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		r, err := cache.NewRedis(pingCtx, a.Config.RedisAddr, a.Config.RedisDB)
		if err == nil {
			logger.Info("Using Redis analysis cache", "addr", a.Config.RedisAddr)
			return r
		}
		logger.Warn("Redis unavailable, using in-memory cache", "addr", a.Config.RedisAddr, "error", err)
	}
	return cache.NewMemory(cacheCleanup)
}

// Server returns the HTTP dashboard bound to this app.
func (a *App) Server() (*web.Server, error) {
	srv, err := web.New(a.Brief, a.Metrics, a.Config.Categories)
	if err != nil {
		return nil, err
	}
	srv.Budget = a.Budget
	srv.Timeout = briefTimeout(a.Config)
	return srv, nil
}

// RunBrief runs one brief and optionally posts it to Telegram.
func (a *App) RunBrief(ctx context.Context, req briefing.Request, sendTelegram bool) (*briefing.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, briefTimeout(a.Config))
	defer cancel()

	report, err := a.Brief.Run(ctx, req)
	if err != nil {
		a.Metrics.SetError(err.Error())
		return nil, err
	}
	if sendTelegram {
		if a.Telegram == nil {
			return report, errors.New("telegram is not configured (TELEGRAM_TOKEN, TELEGRAM_CHAT_ID)")
		}
		if err := a.Telegram.SendReport(ctx, report); err != nil {
			a.Metrics.SetError(err.Error())
			return report, err
		}
	}
	return report, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// briefTimeout bounds a whole brief: every category may search, read bodies
// and wait out the model retries.
func briefTimeout(cfg *config.Config) time.Duration {
	perCategory := cfg.RequestTimeout*time.Duration(1+cfg.ScrapeMaxArticles) +
		time.Duration(cfg.LLMRetryAttempts)*(cfg.RequestTimeout+cfg.LLMRetryDelay*time.Duration(cfg.LLMRetryAttempts))
	if total := time.Duration(len(cfg.Categories)) * perCategory; total > 0 {
		return total
	}
	return time.Minute
}
