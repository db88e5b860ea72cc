// Package app wires the collaborators into the daily digest pipeline:
// fetch, extract, score, filter, deduplicate, summarize, publish.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasGut/motorsport-digest/internal/gemini"
	"github.com/NicolasGut/motorsport-digest/internal/metrics"
	"github.com/NicolasGut/motorsport-digest/internal/news"
	"github.com/NicolasGut/motorsport-digest/internal/ratelimit"
	"github.com/NicolasGut/motorsport-digest/internal/render"
	"github.com/NicolasGut/motorsport-digest/internal/rss"
	"github.com/NicolasGut/motorsport-digest/internal/scraper"
	"github.com/NicolasGut/motorsport-digest/internal/storage"
	"github.com/NicolasGut/motorsport-digest/internal/telegram"
	"github.com/NicolasGut/motorsport-digest/internal/translate"
)

var (
	// ErrNoArticles means no source returned anything usable.
	ErrNoArticles = errors.New("no articles collected")
	// ErrNothingRelevant means every article was filtered out.
	ErrNothingRelevant = errors.New("no relevant articles")
)

type FeedFetcher interface {
	FetchAll(ctx context.Context, feeds []rss.Source) ([]news.Article, error)
}

type ListingScraper interface {
	ScrapeListing(ctx context.Context, source, pageURL string, limit int) ([]news.Article, error)
}

type Extractor interface {
	ExtractBatch(ctx context.Context, urls []string, limit, concurrency int) map[string]*scraper.ArticleContent
}

type Summarizer interface {
	Summarize(ctx context.Context, title, text, link string) (*gemini.Summary, error)
}

type Translator interface {
	Bilingual(ctx context.Context, text string) (fr, en string, err error)
}

type ArticleStore interface {
	SaveArticles(ctx context.Context, runID string, articles []news.Article) (int, error)
	LoadArticles(ctx context.Context, since time.Time) ([]news.Article, error)
}

type Publisher interface {
	Publish(page render.Page) (render.Published, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

var (
	_ FeedFetcher    = (*rss.Fetcher)(nil)
	_ ListingScraper = (*scraper.Client)(nil)
	_ Extractor      = (*scraper.Client)(nil)
	_ Summarizer     = (*gemini.Client)(nil)
	_ Translator     = (*translate.Translator)(nil)
	_ ArticleStore   = (*storage.Store)(nil)
	_ SummaryStore   = (*storage.Store)(nil)
	_ Publisher      = (*render.Renderer)(nil)
	_ Notifier       = (*telegram.Notifier)(nil)
)

// Deps are the pipeline collaborators. Only Publisher is required for Run;
// Regenerate also needs Articles. Nil optional collaborators switch their
// step off.
type Deps struct {
	Feeds       FeedFetcher
	Listings    ListingScraper
	Extractor   Extractor
	Summarizer  Summarizer
	Translator  Translator
	Articles    ArticleStore
	Summaries   SummaryStore
	Publisher   Publisher
	Notifier    Notifier
	Adjustments *storage.Adjustments
	Limiter     *ratelimit.AIRateLimiter
	Metrics     *metrics.Metrics
	Log         *slog.Logger
}

type Options struct {
	Sources           *rss.SourcesConfig
	Rules             news.Rules
	DaysBack          int
	MaxExtract        int
	MaxSummaries      int
	MaxAdditional     int
	MinScore          int
	DedupThreshold    float64 // 0 uses Rules.DedupThreshold
	ScrapeConcurrency int
	ListingLimit      int
	NotifyTop         int
	DigestURL         string
	RepoURL           string
	Now               func() time.Time
}

// Result describes one pipeline run.
type Result struct {
	RunID      string
	Fetched    int
	Recent     int
	Unique     int
	Extracted  int
	Relevant   int
	Duplicates int
	Summarized int
	Additional int
	Stats      news.Stats
	Top        []news.Article
	Published  render.Published
	Duration   time.Duration
}

type Pipeline struct {
	deps    Deps
	opts    Options
	scorer  *news.Scorer
	dedup   *news.Deduplicator
	summary *summaryCache
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Publisher == nil {
		return nil, errors.New("pipeline needs a publisher")
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Global
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ListingLimit == 0 {
		opts.ListingLimit = 20
	}

	return &Pipeline{
		deps:    deps,
		opts:    opts,
		scorer:  news.NewScorer(opts.Rules),
		dedup:   news.NewDeduplicator(opts.Rules, deps.Log),
		summary: newSummaryCache(deps.Summaries, deps.Limiter, deps.Metrics, deps.Log),
	}, nil
}

// Run executes the full daily pipeline.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.opts.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.deps.Log.With("run_id", res.RunID)
	log.Info("run started", "days_back", p.opts.DaysBack, "min_score", p.opts.MinScore, "threshold", p.opts.DedupThreshold)

	collected, err := p.collect(ctx, log)
	if err != nil {
		return nil, p.fail(err)
	}
	res.Fetched = len(collected)
	p.deps.Metrics.AddFetched(len(collected))
	if len(collected) == 0 {
		return nil, p.fail(ErrNoArticles)
	}

	recent := news.FilterRecent(collected, time.Duration(p.opts.DaysBack)*24*time.Hour, start)
	res.Recent = len(recent)
	unique, dropped := news.Unique(recent)
	res.Unique = len(unique)
	log.Info("articles collected", "fetched", res.Fetched, "recent", res.Recent, "exact_duplicates", dropped)

	res.Extracted = p.extract(ctx, unique)

	scored := p.scorer.ScoreAll(unique)
	p.deps.Metrics.AddScored(len(scored))
	res.Stats = news.ComputeStats(scored)
	log.Info("articles scored", "count", res.Stats.Count, "mean", res.Stats.Mean, "median", res.Stats.Median,
		"max", res.Stats.Max, "above_50", res.Stats.Above50, "above_30", res.Stats.Above30)

	if p.deps.Adjustments != nil {
		scored = p.deps.Adjustments.Apply(scored)
	}
	relevant := news.FilterByScore(scored, p.opts.MinScore)
	res.Relevant = len(relevant)
	if len(relevant) == 0 {
		return nil, p.fail(ErrNothingRelevant)
	}

	deduped, err := p.dedup.Deduplicate(relevant, p.opts.DedupThreshold)
	if err != nil {
		return nil, p.fail(fmt.Errorf("deduplicate: %w", err))
	}
	res.Duplicates = len(relevant) - len(deduped)
	p.deps.Metrics.AddDuplicatesRemoved(res.Duplicates)
	p.deps.Metrics.AddSelected(len(deduped))

	if err := p.publish(ctx, log, res, deduped, len(scored)); err != nil {
		return nil, p.fail(err)
	}

	res.Duration = p.opts.Now().Sub(start)
	p.deps.Metrics.RecordProcessingTime(res.Duration)
	p.deps.Metrics.SetLastRun(res.RunID)
	log.Info("run finished", "summarized", res.Summarized, "additional", res.Additional, "duration", res.Duration)
	return res, nil
}

// Regenerate rebuilds the page from stored articles with the manual
// adjustments applied, reusing stored summaries.
func (p *Pipeline) Regenerate(ctx context.Context) (*Result, error) {
	if p.deps.Articles == nil {
		return nil, errors.New("regenerate needs an article store")
	}
	start := p.opts.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.deps.Log.With("run_id", res.RunID)

	var since time.Time
	if p.opts.DaysBack > 0 {
		since = start.Add(-time.Duration(p.opts.DaysBack) * 24 * time.Hour)
	}
	stored, err := p.deps.Articles.LoadArticles(ctx, since)
	if err != nil {
		return nil, p.fail(fmt.Errorf("load articles: %w", err))
	}
	res.Fetched = len(stored)
	if len(stored) == 0 {
		return nil, p.fail(ErrNoArticles)
	}

	if p.deps.Adjustments != nil {
		stored = p.deps.Adjustments.Apply(stored)
	}
	res.Stats = news.ComputeStats(stored)
	res.Relevant = len(stored)

	deduped, err := p.dedup.Deduplicate(stored, p.opts.DedupThreshold)
	if err != nil {
		return nil, p.fail(fmt.Errorf("deduplicate: %w", err))
	}
	res.Duplicates = len(stored) - len(deduped)
	log.Info("regenerating digest", "articles", len(deduped), "duplicates", res.Duplicates)

	if err := p.publish(ctx, log, res, deduped, len(stored)); err != nil {
		return nil, p.fail(err)
	}
	res.Duration = p.opts.Now().Sub(start)
	p.deps.Metrics.SetLastRun(res.RunID)
	return res, nil
}

func (p *Pipeline) fail(err error) error {
	p.deps.Metrics.SetError(err.Error())
	return err
}

// collect gathers feed items and scraped listing entries. A failing scraped
// source is logged and skipped.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger) ([]news.Article, error) {
	if p.opts.Sources == nil {
		return nil, nil
	}
	var out []news.Article

	if p.deps.Feeds != nil && len(p.opts.Sources.Feeds) > 0 {
		items, err := p.deps.Feeds.FetchAll(ctx, p.opts.Sources.Feeds)
		if err != nil {
			log.Error("feed fetch failed", "error", err)
		}
		out = append(out, items...)
	}

	if p.deps.Listings != nil {
		for _, src := range p.opts.Sources.Scrape {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			items, err := p.deps.Listings.ScrapeListing(ctx, src.Name, src.URL, p.opts.ListingLimit)
			if err != nil {
				log.Warn("listing scrape failed", "source", src.Name, "error", err)
				continue
			}
			out = append(out, items...)
		}
	}
	return out, nil
}

// extract fills Body for the first MaxExtract articles with the page text.
func (p *Pipeline) extract(ctx context.Context, articles []news.Article) int {
	if p.deps.Extractor == nil || p.opts.MaxExtract == 0 {
		return 0
	}
	links := make([]string, 0, len(articles))
	for _, a := range articles {
		links = append(links, a.Link)
	}

	contents := p.deps.Extractor.ExtractBatch(ctx, links, p.opts.MaxExtract, p.opts.ScrapeConcurrency)
	for i := range articles {
		if c, ok := contents[articles[i].Link]; ok {
			articles[i].Body = c.Content
		}
	}
	return len(contents)
}

// publish summarizes the top articles, renders the page, saves what was
// selected and sends the optional notification.
func (p *Pipeline) publish(ctx context.Context, log *slog.Logger, res *Result, ranked []news.Article, analyzed int) error {
	top := news.Top(ranked, p.opts.MaxSummaries)
	summarized := p.summarize(ctx, log, top)

	var rest []news.Article
	if len(ranked) > len(top) {
		rest = news.Top(ranked[len(top):], p.opts.MaxAdditional)
	}
	res.Summarized = len(summarized)
	res.Additional = len(rest)
	res.Top = summarized

	if p.deps.Articles != nil {
		byLink := make(map[string]news.Article, len(summarized))
		for _, a := range summarized {
			byLink[a.Link] = a
		}
		toSave := make([]news.Article, len(ranked))
		for i, a := range ranked {
			if s, ok := byLink[a.Link]; ok {
				a = s
			}
			toSave[i] = a
		}
		if n, err := p.deps.Articles.SaveArticles(ctx, res.RunID, toSave); err != nil {
			log.Error("saving articles failed", "error", err)
		} else {
			log.Info("articles saved", "count", n)
		}
	}

	out, err := p.deps.Publisher.Publish(render.Page{
		Generated:  p.opts.Now(),
		Articles:   summarized,
		Additional: rest,
		Analyzed:   analyzed,
		RunID:      res.RunID,
		RepoURL:    p.opts.RepoURL,
	})
	if err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	res.Published = out
	log.Info("digest published", "latest", out.Latest, "archive", out.Archive)

	if p.deps.Notifier != nil {
		msg := telegram.FormatDigest(summarized, p.opts.DigestURL, p.opts.NotifyTop, p.opts.Now())
		if err := p.deps.Notifier.SendMessage(ctx, msg); err != nil {
			log.Error("telegram notification failed", "error", err)
		} else {
			p.deps.Metrics.IncrementTelegramSent()
		}
	}
	return nil
}

// summarize returns the articles that ended up with both summaries, in input
// order. Model failures fall back to an extract of the text.
func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, articles []news.Article) []news.Article {
	out := make([]news.Article, 0, len(articles))
	for i, a := range articles {
		if ctx.Err() != nil {
			break
		}
		if !a.HasSummary() {
			a = p.summarizeOne(ctx, log, a)
		}
		if !a.HasSummary() {
			log.Warn("article left without summary", "title", a.Title)
			continue
		}
		log.Debug("summary ready", "n", i+1, "total", len(articles), "title", a.Title)
		out = append(out, a)
	}
	return out
}

func (p *Pipeline) summarizeOne(ctx context.Context, log *slog.Logger, a news.Article) news.Article {
	text := a.Text()
	key := news.ContentKey(a.Title, text)

	if s, ok := p.summary.Get(ctx, key, len(text)); ok {
		return withSummary(a, s)
	}

	if p.deps.Summarizer != nil {
		s, err := p.deps.Summarizer.Summarize(ctx, a.Title, text, a.Link)
		if err == nil {
			p.deps.Metrics.IncrementSummaries()
			p.summary.Put(ctx, key, *s)
			return withSummary(a, *s)
		}
		p.deps.Metrics.IncrementFailedSummary()
		if errors.Is(err, ratelimit.ErrBudgetExhausted) {
			log.Warn("gemini budget exhausted, using extract", "title", a.Title)
		} else {
			log.Warn("gemini summary failed, using extract", "title", a.Title, "error", err)
		}
	}
	return p.fallback(ctx, log, a, text)
}

func (p *Pipeline) fallback(ctx context.Context, log *slog.Logger, a news.Article, text string) news.Article {
	summary := news.FallbackSummary(text)
	if summary == "" {
		summary = a.Title
	}
	a.TitleFR, a.TitleEN = a.Title, a.Title
	a.SummaryFR, a.SummaryEN = summary, summary

	if p.deps.Translator == nil {
		return a
	}
	if fr, en, err := p.deps.Translator.Bilingual(ctx, a.Title); err == nil {
		a.TitleFR, a.TitleEN = fr, en
	} else {
		log.Warn("title translation failed", "title", a.Title, "error", err)
	}
	if fr, en, err := p.deps.Translator.Bilingual(ctx, summary); err == nil {
		a.SummaryFR, a.SummaryEN = fr, en
	}
	return a
}

func withSummary(a news.Article, s gemini.Summary) news.Article {
	a.TitleFR, a.SummaryFR = s.TitleFR, s.SummaryFR
	a.TitleEN, a.SummaryEN = s.TitleEN, s.SummaryEN
	return a
}
