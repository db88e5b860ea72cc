package news

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/NicolasGut/motorsport-digest/internal/similarity"
)

// ErrUnscored is returned when an article reaches deduplication without a score.
var ErrUnscored = errors.New("article has not been scored")

// Deduplicator collapses stories covered by several outlets into the
// best-scored (then most trusted) copy.
type Deduplicator struct {
	rules Rules
	log   *slog.Logger
}

func NewDeduplicator(rules Rules, log *slog.Logger) *Deduplicator {
	if log == nil {
		log = slog.Default()
	}
	return &Deduplicator{rules: rules.normalized(), log: log}
}

// Deduplicate returns articles sorted by descending score with near-identical
// titles removed. A threshold <= 0 selects the configured default.
//
// When two titles match, the higher score wins; on equal scores the source
// with the higher priority wins and equal priorities keep the article that
// came first. Removed articles leave only a log entry.
func (d *Deduplicator) Deduplicate(articles []Article, threshold float64) ([]Article, error) {
	if len(articles) < 2 {
		return articles, nil
	}
	for i, a := range articles {
		if !a.Scored {
			return nil, fmt.Errorf("dedupe %q (index %d): %w", a.Title, i, ErrUnscored)
		}
	}
	if threshold <= 0 {
		threshold = d.rules.DedupThreshold
	}

	sorted := slices.Clone(articles)
	sortByScore(sorted)

	skip := make([]bool, len(sorted))
	kept := make([]int, 0, len(sorted))
	removed := 0

	for i := range sorted {
		if skip[i] {
			continue
		}
		keepI := true
		cur := sorted[i]

		for j := i + 1; j < len(sorted); j++ {
			if skip[j] {
				continue
			}
			other := sorted[j]
			sim := similarity.Score(cur.Title, other.Title)
			if sim < threshold {
				continue
			}

			if d.prefer(cur, other) {
				skip[j] = true
				removed++
				d.log.Info("duplicate removed",
					"title", other.Title, "source", other.Source, "score", other.Score,
					"kept_source", cur.Source, "similarity", sim)
				continue
			}

			keepI = false
			skip[i] = true
			removed++
			d.log.Info("duplicate removed",
				"title", cur.Title, "source", cur.Source, "score", cur.Score,
				"kept_source", other.Source, "similarity", sim)
			break
		}

		if keepI {
			kept = append(kept, i)
		}
	}

	out := make([]Article, 0, len(kept))
	for _, i := range kept {
		out = append(out, sorted[i])
	}
	d.log.Info("deduplication done", "removed", removed, "before", len(articles), "after", len(out), "threshold", threshold)
	return out, nil
}

// prefer reports whether a should be kept over b.
func (d *Deduplicator) prefer(a, b Article) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return d.rules.PriorityOf(a.Source) >= d.rules.PriorityOf(b.Source)
}
