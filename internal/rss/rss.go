package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/NicolasGut/motorsport-digest/internal/news"
)

// ErrNoSources is returned when the sources file lists nothing to fetch.
var ErrNoSources = errors.New("no sources configured")

// Source is a named feed or listing page.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SourcesConfig is the YAML config structure
//
//	feeds:
//	  - name: Autosport
//	    url: https://...
//	scrape:
//	  - name: FIA_WEC
//	    url: https://...
type SourcesConfig struct {
	Feeds  []Source `yaml:"feeds"`
	Scrape []Source `yaml:"scrape"`
}

// LoadSources reads the feed and listing lists from a YAML file.
func LoadSources(path string) (*SourcesConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources: %w", err)
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode sources %s: %w", path, err)
	}
	all := slices.Concat(cfg.Feeds, cfg.Scrape)
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
	}
	for _, s := range all {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source %+v: name and url are required", s)
		}
	}
	return &cfg, nil
}

// Fetcher downloads and parses RSS/Atom feeds.
type Fetcher struct {
	Client      *http.Client
	UserAgent   string
	Concurrency int
	Log         *slog.Logger
}

func NewFetcher(timeout time.Duration, concurrency int, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		Client:      &http.Client{Timeout: timeout},
		UserAgent:   "Mozilla/5.0 (compatible; motordigest/1.0; +https://github.com/NicolasGut/motorsport-digest)",
		Concurrency: max(concurrency, 1),
		Log:         log,
	}
}

// FetchAll downloads every feed concurrently. A broken feed is logged and
// skipped; an error is returned only when no feed could be read.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []Source) ([]news.Article, error) {
	var (
		mu       sync.Mutex
		results  = make([][]news.Article, len(feeds))
		okCount  int
		firstErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Concurrency)

	for i, src := range feeds {
		g.Go(func() error {
			articles, err := f.Fetch(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.Log.Warn("feed failed", "source", src.Name, "url", src.URL, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			results[i] = articles
			okCount++
			f.Log.Info("feed loaded", "source", src.Name, "articles", len(articles))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []news.Article
	for _, r := range results {
		all = append(all, r...)
	}
	f.Log.Info("processed rss feeds", "ok", okCount, "total", len(feeds), "articles", len(all))

	if okCount == 0 && len(feeds) > 0 {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(feeds), firstErr)
	}
	return all, nil
}

// Fetch downloads one feed.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]news.Article, error) {
	parser := gofeed.NewParser()
	parser.Client = f.Client
	parser.UserAgent = f.UserAgent

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
	}
	return ToArticles(src.Name, feed), nil
}

// ParseString parses a feed document already in memory.
func ParseString(source, body string) ([]news.Article, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source, err)
	}
	return ToArticles(source, feed), nil
}

// ToArticles maps feed items to articles. Items without title or link are skipped.
func ToArticles(source string, feed *gofeed.Feed) []news.Article {
	if feed == nil {
		return nil
	}
	out := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		excerpt := item.Description
		if excerpt == "" {
			excerpt = item.Content
		}

		a := news.Article{
			Title:   title,
			Link:    link,
			Source:  source,
			Excerpt: stripHTML(excerpt),
		}
		switch {
		case item.PublishedParsed != nil:
			a.PublishedAt = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			a.PublishedAt = item.UpdatedParsed.UTC()
		}
		out = append(out, a)
	}
	return out
}

func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
