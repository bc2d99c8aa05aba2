package app

import (
	"context"
	"testing"
	"time"

	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/cache"
	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/config"
	"github.com/deusflow/vzradar/internal/search"
)

func testConfig() *config.Config {
	return &config.Config{
		LLMProvider:         "openai",
		LLMModel:            "gpt-4o-mini",
		OpenAIAPIKey:        "test-key",
		LLMRetryAttempts:    3,
		LLMRetryDelay:       time.Second,
		SearchBackend:       "rss",
		SearchLanguage:      "es-419",
		SearchRegion:        "VE",
		SearchRetryAttempts: 2,
		SearchRetryDelay:    time.Second,
		MaxPerCategory:      8,
		ScrapeMaxArticles:   5,
		RequestTimeout:      10 * time.Second,
		AnalysisCacheTTL:    10 * time.Minute,
		Categories:          classify.DefaultCategories(),
	}
}

func TestNewWiresComponents(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Brief.Source.(*search.RSSSource); !ok {
		t.Errorf("expected RSS source, got %T", a.Brief.Source)
	}
	if a.Telegram != nil {
		t.Error("telegram should be disabled without credentials")
	}
	if a.Brief.MaxPerCategory != 8 || a.Brief.MaxBodies != 5 {
		t.Errorf("limits not wired: %+v", a.Brief)
	}
	if _, err := a.Server(); err != nil {
		t.Errorf("Server: %v", err)
	}
}

func TestNewHTMLBackendAndTelegram(t *testing.T) {
	cfg := testConfig()
	cfg.SearchBackend = "html"
	cfg.TelegramToken = "token"
	cfg.TelegramChatID = "@canal"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Brief.Source.(*search.HTMLSource); !ok {
		t.Errorf("expected HTML source, got %T", a.Brief.Source)
	}
	if a.Telegram == nil || a.Telegram.Metrics != a.Metrics {
		t.Error("telegram client should be wired with metrics")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "llama"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRedisFallback(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	a := &App{Config: cfg}
	store := a.newCache(context.Background())
	defer store.Close()
	if _, ok := store.(*cache.Memory); !ok {
		t.Errorf("expected memory fallback, got %T", store)
	}
}

func TestRunBriefCancelled(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled context stops the brief before any network call.
	if _, err := a.RunBrief(ctx, briefing.Request{}, true); err == nil {
		t.Error("expected error for cancelled brief")
	}
}

func TestBriefTimeout(t *testing.T) {
	cfg := testConfig()
	if d := briefTimeout(cfg); d < time.Minute {
		t.Errorf("timeout too short: %v", d)
	}
	cfg.Categories = nil
	if d := briefTimeout(cfg); d != time.Minute {
		t.Errorf("expected fallback of one minute, got %v", d)
	}
}
