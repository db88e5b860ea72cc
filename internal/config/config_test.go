package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DaysBack)
	assert.Equal(t, 100, cfg.MaxExtract)
	assert.Equal(t, 20, cfg.MaxSummaries)
	assert.Equal(t, 20, cfg.MinScore)
	assert.Zero(t, cfg.DedupThreshold, "rules file decides")
	assert.Equal(t, "docs", cfg.OutputDir)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("DAYS_BACK", "3")
	t.Setenv("MIN_SCORE", "35")
	t.Setenv("DEDUP_THRESHOLD", "0.8")
	t.Setenv("REQUEST_TIMEOUT", "20")
	t.Setenv("SCRAPE_INTERVAL", "250ms")
	t.Setenv("MAX_EXTRACT", "not-a-number")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, 3, cfg.DaysBack)
	assert.Equal(t, 35, cfg.MinScore)
	assert.Equal(t, 0.8, cfg.DedupThreshold)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ScrapeInterval)
	assert.Equal(t, 100, cfg.MaxExtract)
	assert.True(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "days", mutate: func(c *Config) { c.DaysBack = 0 }, wantErr: "DAYS_BACK"},
		{name: "score", mutate: func(c *Config) { c.MinScore = 101 }, wantErr: "MIN_SCORE"},
		{name: "threshold from rules", mutate: func(c *Config) { c.DedupThreshold = 0 }},
		{name: "threshold override", mutate: func(c *Config) { c.DedupThreshold = 0.55 }},
		{name: "negative threshold", mutate: func(c *Config) { c.DedupThreshold = -0.1 }, wantErr: "DEDUP_THRESHOLD"},
		{name: "threshold above one", mutate: func(c *Config) { c.DedupThreshold = 1.5 }, wantErr: "DEDUP_THRESHOLD"},
		{name: "telegram half set", mutate: func(c *Config) { c.TelegramToken = "t" }, wantErr: "TELEGRAM"},
		{name: "telegram set", mutate: func(c *Config) { c.TelegramToken, c.TelegramChatID = "t", "1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
