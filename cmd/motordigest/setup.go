package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NicolasGut/motorsport-digest/internal/app"
	"github.com/NicolasGut/motorsport-digest/internal/config"
	"github.com/NicolasGut/motorsport-digest/internal/gemini"
	"github.com/NicolasGut/motorsport-digest/internal/logger"
	"github.com/NicolasGut/motorsport-digest/internal/metrics"
	"github.com/NicolasGut/motorsport-digest/internal/news"
	"github.com/NicolasGut/motorsport-digest/internal/ratelimit"
	"github.com/NicolasGut/motorsport-digest/internal/render"
	"github.com/NicolasGut/motorsport-digest/internal/retry"
	"github.com/NicolasGut/motorsport-digest/internal/rss"
	"github.com/NicolasGut/motorsport-digest/internal/scraper"
	"github.com/NicolasGut/motorsport-digest/internal/storage"
	"github.com/NicolasGut/motorsport-digest/internal/telegram"
	"github.com/NicolasGut/motorsport-digest/internal/translate"
)

// env holds what every command needs: config, logger, the store and the
// adjustments file.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *storage.Store
	adjust  *storage.Adjustments
	limiter *ratelimit.AIRateLimiter
	closers []func()
}

func loadEnv(debug bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	logger.Init(cfg.Debug)

	e := &env{cfg: cfg, log: logger.Logger}
	e.limiter = ratelimit.NewAIRateLimiter(0, e.log)
	e.resetBudget()
	return e, nil
}

// resetBudget gives the next run a fresh AI request budget.
func (e *env) resetBudget() {
	e.limiter.SetLimit(ratelimit.Gemini, e.cfg.MaxGeminiRequests, e.cfg.GeminiInterval)
	e.limiter.SetLimit(ratelimit.Translate, e.cfg.MaxGeminiRequests, 0)
}

// openStore opens the SQLite store and the adjustments file.
func (e *env) openStore() error {
	store, err := storage.Open(e.cfg.DBPath)
	if err != nil {
		return err
	}
	e.store = store
	e.closers = append(e.closers, func() { _ = store.Close() })

	adj, err := storage.LoadAdjustments(e.cfg.AdjustmentsPath)
	if err != nil {
		return err
	}
	e.adjust = adj
	return nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *env) retryConfig() retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts: e.cfg.RetryAttempts,
		Delay:       e.cfg.RetryDelay,
		Backoff:     true,
		MaxDelay:    30 * e.cfg.RetryDelay,
	}
}

// pipeline builds the full pipeline. Gemini and Telegram are only wired when
// configured; without Gemini every article gets an extractive summary.
func (e *env) pipeline(ctx context.Context) (*app.Pipeline, error) {
	if err := e.openStore(); err != nil {
		return nil, err
	}

	rules, err := news.LoadRules(e.cfg.RulesConfigPath)
	if err != nil {
		return nil, err
	}
	sources, err := rss.LoadSources(e.cfg.FeedsConfigPath)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(e.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	sc := scraper.NewClient(e.cfg.RequestTimeout, e.cfg.ScrapeInterval, e.log)
	deps := app.Deps{
		Feeds:     rss.NewFetcher(e.cfg.RequestTimeout, e.cfg.ScrapeConcurrency, e.log),
		Listings:  sc,
		Extractor: sc,
		Translator: translate.New(translate.Options{
			Timeout:   e.cfg.RequestTimeout,
			OpenAIKey: e.cfg.OpenAIAPIKey,
		}, e.limiter, e.log),
		Articles:    e.store,
		Summaries:   e.store,
		Publisher:   renderer,
		Adjustments: e.adjust,
		Limiter:     e.limiter,
		Metrics:     metrics.Global,
		Log:         e.log,
	}

	if e.cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, e.cfg.GeminiAPIKey, e.cfg.GeminiModel, e.limiter, e.retryConfig(), e.log)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		e.closers = append(e.closers, client.Close)
		deps.Summarizer = client
	} else {
		logger.Warn("GEMINI_API_KEY not set, summaries will be extracts")
	}

	if e.cfg.TelegramEnabled() {
		deps.Notifier = telegram.NewNotifier(e.cfg.TelegramToken, e.cfg.TelegramChatID, e.retryConfig(), e.log)
		logger.Debug("telegram notifications enabled", "chat_id", e.cfg.TelegramChatID)
	}

	return app.New(deps, app.Options{
		Sources:           sources,
		Rules:             rules,
		DaysBack:          e.cfg.DaysBack,
		MaxExtract:        e.cfg.MaxExtract,
		MaxSummaries:      e.cfg.MaxSummaries,
		MaxAdditional:     e.cfg.MaxAdditional,
		MinScore:          e.cfg.MinScore,
		DedupThreshold:    e.cfg.DedupThreshold,
		ScrapeConcurrency: e.cfg.ScrapeConcurrency,
		NotifyTop:         5,
		DigestURL:         e.cfg.DigestURL,
	})
}
