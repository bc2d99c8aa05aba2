package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/deusflow/vzradar/internal/classify"
	"github.com/deusflow/vzradar/internal/logger"
)

type Config struct {
	// LLM settings
	LLMProvider      string // gemini | genai | openai
	LLMModel         string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	MaxLLMRequests   int // daily budget, 0 = unlimited
	LLMRetryAttempts int
	LLMRetryDelay    time.Duration

	// Search settings
	SearchBackend       string // rss | html
	SearchLanguage      string
	SearchRegion        string
	SearchRetryAttempts int
	SearchRetryDelay    time.Duration
	MaxPerCategory      int
	CategoriesPath      string
	Categories          []classify.Category

	// Scraper settings
	FetchBodies       bool
	ScrapeMaxArticles int

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	HTTPAddr       string

	// Cache settings
	AnalysisCacheTTL time.Duration
	RedisAddr        string
	RedisDB          int

	// Telegram settings (optional)
	TelegramToken  string
	TelegramChatID string
}

// DefaultModel returns the model used when LLM_MODEL is not set.
func DefaultModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o-mini"
	}
	return "gemini-1.5-flash"
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not read .env", "error", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from the environment without validating secrets.
func FromEnv() (*Config, error) {
	cfg := &Config{
		// Default values
		LLMProvider:         "gemini",
		LLMRetryAttempts:    3,
		LLMRetryDelay:       5 * time.Second,
		SearchBackend:       "rss",
		SearchLanguage:      "es-419",
		SearchRegion:        "VE",
		SearchRetryAttempts: 2,
		SearchRetryDelay:    time.Second,
		MaxPerCategory:      8,
		CategoriesPath:      "configs/categories.yaml",
		ScrapeMaxArticles:   5,
		RequestTimeout:      10 * time.Second,
		HTTPAddr:            ":8080",
		AnalysisCacheTTL:    10 * time.Minute,
	}

	cfg.LLMProvider = strings.ToLower(getEnvOrDefault("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnvOrDefault("LLM_MODEL", DefaultModel(cfg.LLMProvider))
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.MaxLLMRequests = getEnvIntOrDefault("MAX_LLM_REQUESTS", 0)
	cfg.LLMRetryAttempts = getEnvIntOrDefault("LLM_RETRY_ATTEMPTS", cfg.LLMRetryAttempts)
	cfg.LLMRetryDelay = getEnvDurationOrDefault("LLM_RETRY_DELAY", cfg.LLMRetryDelay)

	cfg.SearchBackend = strings.ToLower(getEnvOrDefault("SEARCH_BACKEND", cfg.SearchBackend))
	cfg.SearchLanguage = getEnvOrDefault("SEARCH_LANGUAGE", cfg.SearchLanguage)
	cfg.SearchRegion = getEnvOrDefault("SEARCH_REGION", cfg.SearchRegion)
	cfg.SearchRetryAttempts = getEnvIntOrDefault("SEARCH_RETRY_ATTEMPTS", cfg.SearchRetryAttempts)
	cfg.SearchRetryDelay = getEnvDurationOrDefault("SEARCH_RETRY_DELAY", cfg.SearchRetryDelay)
	if v := getEnvIntOrDefault("MAX_PER_CATEGORY", 0); v > 0 {
		cfg.MaxPerCategory = v
	}
	cfg.CategoriesPath = getEnvOrDefault("CATEGORIES_PATH", cfg.CategoriesPath)

	cfg.FetchBodies = os.Getenv("FETCH_BODIES") == "true"
	if v := getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", 0); v > 0 {
		cfg.ScrapeMaxArticles = v
	}

	cfg.Debug = os.Getenv("DEBUG") == "true"
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)

	cfg.AnalysisCacheTTL = getEnvDurationOrDefault("ANALYSIS_CACHE_TTL", cfg.AnalysisCacheTTL)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisDB = getEnvIntOrDefault("REDIS_DB", 0)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cats, err := classify.LoadCategories(cfg.CategoriesPath)
	switch {
	case err == nil:
		cfg.Categories = cats
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("category file not found, using built-in table", "path", cfg.CategoriesPath)
		cfg.Categories = classify.DefaultCategories()
	default:
		return nil, fmt.Errorf("load categories: %w", err)
	}

	return cfg, nil
}

// APIKey returns the secret for the configured provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "gemini", "genai":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for LLM_PROVIDER=%s", c.LLMProvider)
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'gemini', 'genai' or 'openai'")
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL must not be empty")
	}
	if c.SearchBackend != "rss" && c.SearchBackend != "html" {
		return fmt.Errorf("SEARCH_BACKEND must be 'rss' or 'html'")
	}
	if c.LLMRetryAttempts < 1 {
		return fmt.Errorf("LLM_RETRY_ATTEMPTS must be at least 1")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}
