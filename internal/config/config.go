// Package config loads run settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)
	GeminiInterval    time.Duration

	// Optional translation fallback
	OpenAIAPIKey string

	// Sources
	FeedsConfigPath string
	RulesConfigPath string
	DaysBack        int

	// Pipeline
	MaxExtract     int
	MaxSummaries   int
	MaxAdditional  int
	MinScore       int
	DedupThreshold float64 // 0 uses dedup_threshold from the rules file

	// Scraper settings
	ScrapeConcurrency int
	ScrapeInterval    time.Duration // pause between two requests to the same run

	// Storage / output
	DBPath          string
	AdjustmentsPath string
	OutputDir       string
	DigestURL       string

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID string

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MonitoringPort string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GeminiModel:       "gemini-1.5-flash",
		MaxGeminiRequests: 25,
		GeminiInterval:    4 * time.Second,
		FeedsConfigPath:   "configs/feeds.yaml",
		RulesConfigPath:   "configs/rules.yaml",
		DaysBack:          7,
		MaxExtract:        100,
		MaxSummaries:      20,
		MaxAdditional:     20,
		MinScore:          20,
		ScrapeConcurrency: 4,
		ScrapeInterval:    500 * time.Millisecond,
		DBPath:            "data/motorsport.db",
		AdjustmentsPath:   "data/manual_adjustments.json",
		OutputDir:         "docs",
		RequestTimeout:    15 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        2 * time.Second,
		MonitoringPort:    "8080",
	}
}

// Load reads .env (if present) and the environment on top of Default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.DigestURL = os.Getenv("DIGEST_URL")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.RulesConfigPath = getEnvOrDefault("RULES_CONFIG_PATH", cfg.RulesConfigPath)
	cfg.DBPath = getEnvOrDefault("DB_PATH", cfg.DBPath)
	cfg.AdjustmentsPath = getEnvOrDefault("ADJUSTMENTS_PATH", cfg.AdjustmentsPath)
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.DaysBack = getEnvIntOrDefault("DAYS_BACK", cfg.DaysBack)
	cfg.MaxExtract = getEnvIntOrDefault("MAX_EXTRACT", cfg.MaxExtract)
	cfg.MaxSummaries = getEnvIntOrDefault("MAX_SUMMARIES", cfg.MaxSummaries)
	cfg.MaxAdditional = getEnvIntOrDefault("MAX_ADDITIONAL", cfg.MaxAdditional)
	cfg.MinScore = getEnvIntOrDefault("MIN_SCORE", cfg.MinScore)
	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.GeminiInterval = getEnvDurationOrDefault("GEMINI_INTERVAL", cfg.GeminiInterval)
	cfg.ScrapeInterval = getEnvDurationOrDefault("SCRAPE_INTERVAL", cfg.ScrapeInterval)

	if v := os.Getenv("DEDUP_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DedupThreshold = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
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

// getEnvDurationOrDefault accepts Go durations ("15s") or plain seconds ("15").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// Validate checks ranges. Missing API keys are not errors: the pipeline
// degrades to extractive summaries and skips notifications.
func (c *Config) Validate() error {
	if c.DaysBack <= 0 {
		return fmt.Errorf("DAYS_BACK must be positive, got %d", c.DaysBack)
	}
	if c.MaxExtract < 0 || c.MaxSummaries < 0 || c.MaxAdditional < 0 {
		return fmt.Errorf("MAX_EXTRACT, MAX_SUMMARIES and MAX_ADDITIONAL must not be negative")
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("MIN_SCORE must be in [0,100], got %d", c.MinScore)
	}
	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in [0,1] (0 uses the rules file), got %v", c.DedupThreshold)
	}
	if c.ScrapeConcurrency <= 0 {
		return fmt.Errorf("SCRAPE_CONCURRENCY must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
