// Package storage persists scored articles and generated summaries in SQLite
// and keeps the manual adjustments file.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/NicolasGut/motorsport-digest/internal/news"
)

// ErrNotFound is returned when a cached summary does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	link        TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	excerpt     TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	score       INTEGER NOT NULL DEFAULT 0,
	published   INTEGER NOT NULL DEFAULT 0,
	title_fr    TEXT NOT NULL DEFAULT '',
	title_en    TEXT NOT NULL DEFAULT '',
	summary_fr  TEXT NOT NULL DEFAULT '',
	summary_en  TEXT NOT NULL DEFAULT '',
	run_id      TEXT NOT NULL DEFAULT '',
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published);
CREATE INDEX IF NOT EXISTS idx_articles_score ON articles(score);

CREATE TABLE IF NOT EXISTS summary_cache (
	content_hash TEXT PRIMARY KEY,
	title_fr     TEXT NOT NULL,
	summary_fr   TEXT NOT NULL,
	title_en     TEXT NOT NULL,
	summary_en   TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL,
	use_count    INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_summary_cache_last_used ON summary_cache(last_used_at);
`

// CachedSummary is a bilingual summary keyed by article content hash.
type CachedSummary struct {
	ContentHash string
	TitleFR     string
	SummaryFR   string
	TitleEN     string
	SummaryEN   string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	UseCount    int
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// SaveArticles upserts articles by link. The latest score wins; existing
// summaries are kept when the new row has none.
func (s *Store) SaveArticles(ctx context.Context, runID string, articles []news.Article) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now().Unix()
	saved := 0
	for _, a := range articles {
		if a.Link == "" {
			continue
		}
		query, args, err := sq.Insert("articles").
			Columns("link", "title", "source", "excerpt", "body", "score", "published",
				"title_fr", "title_en", "summary_fr", "summary_en", "run_id", "updated_at").
			Values(a.Link, a.Title, a.Source, a.Excerpt, a.Body, a.Score, unix(a.PublishedAt),
				a.TitleFR, a.TitleEN, a.SummaryFR, a.SummaryEN, runID, now).
			Suffix(`ON CONFLICT(link) DO UPDATE SET
				title = excluded.title,
				source = excluded.source,
				excerpt = excluded.excerpt,
				body = CASE WHEN excluded.body <> '' THEN excluded.body ELSE articles.body END,
				score = excluded.score,
				published = excluded.published,
				title_fr = CASE WHEN excluded.title_fr <> '' THEN excluded.title_fr ELSE articles.title_fr END,
				title_en = CASE WHEN excluded.title_en <> '' THEN excluded.title_en ELSE articles.title_en END,
				summary_fr = CASE WHEN excluded.summary_fr <> '' THEN excluded.summary_fr ELSE articles.summary_fr END,
				summary_en = CASE WHEN excluded.summary_en <> '' THEN excluded.summary_en ELSE articles.summary_en END,
				run_id = excluded.run_id,
				updated_at = excluded.updated_at`).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert article %s: %w", a.Link, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

// LoadArticles returns stored articles published at or after since (zero =
// all), highest score first.
func (s *Store) LoadArticles(ctx context.Context, since time.Time) ([]news.Article, error) {
	b := sq.Select("link", "title", "source", "excerpt", "body", "score", "published",
		"title_fr", "title_en", "summary_fr", "summary_en").
		From("articles").
		OrderBy("score DESC", "published DESC", "link")
	if !since.IsZero() {
		b = b.Where(sq.GtOrEq{"published": since.Unix()})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []news.Article
	for rows.Next() {
		var (
			a         news.Article
			published int64
		)
		if err := rows.Scan(&a.Link, &a.Title, &a.Source, &a.Excerpt, &a.Body, &a.Score, &published,
			&a.TitleFR, &a.TitleEN, &a.SummaryFR, &a.SummaryEN); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.PublishedAt = fromUnix(published)
		a.Scored = true
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// GetSummary looks up a cached summary and records the use.
func (s *Store) GetSummary(ctx context.Context, contentHash string) (CachedSummary, error) {
	query, args, err := sq.Select("content_hash", "title_fr", "summary_fr", "title_en", "summary_en",
		"created_at", "last_used_at", "use_count").
		From("summary_cache").
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
	if err != nil {
		return CachedSummary{}, fmt.Errorf("build select: %w", err)
	}

	var (
		c                 CachedSummary
		created, lastUsed int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&c.ContentHash, &c.TitleFR, &c.SummaryFR,
		&c.TitleEN, &c.SummaryEN, &created, &lastUsed, &c.UseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedSummary{}, ErrNotFound
	}
	if err != nil {
		return CachedSummary{}, fmt.Errorf("get summary: %w", err)
	}
	c.CreatedAt, c.LastUsedAt = fromUnix(created), fromUnix(lastUsed)

	update, uargs, err := sq.Update("summary_cache").
		Set("last_used_at", s.now().Unix()).
		Set("use_count", sq.Expr("use_count + 1")).
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
	if err != nil {
		return CachedSummary{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, update, uargs...); err != nil {
		return CachedSummary{}, fmt.Errorf("touch summary: %w", err)
	}
	return c, nil
}

// PutSummary stores or replaces a cached summary.
func (s *Store) PutSummary(ctx context.Context, c CachedSummary) error {
	now := s.now().Unix()
	query, args, err := sq.Insert("summary_cache").
		Columns("content_hash", "title_fr", "summary_fr", "title_en", "summary_en", "created_at", "last_used_at", "use_count").
		Values(c.ContentHash, c.TitleFR, c.SummaryFR, c.TitleEN, c.SummaryEN, now, now, 1).
		Suffix(`ON CONFLICT(content_hash) DO UPDATE SET
			title_fr = excluded.title_fr,
			summary_fr = excluded.summary_fr,
			title_en = excluded.title_en,
			summary_en = excluded.summary_en,
			last_used_at = excluded.last_used_at,
			use_count = summary_cache.use_count + 1`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	return nil
}

// PruneSummaries deletes cached summaries not used since before.
func (s *Store) PruneSummaries(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := sq.Delete("summary_cache").
		Where(sq.Lt{"last_used_at": before.Unix()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune summaries: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns row counts for the run summary.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, table := range []string{"articles", "summary_cache"} {
		query, args, err := sq.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			return nil, err
		}
		var n int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}
