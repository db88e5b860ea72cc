// Package news holds the article model and the relevance pipeline core:
// rule loading, scoring, ranking and near-duplicate removal.
package news

import (
	"sort"
	"strings"
	"time"
)

// Unique drops repeated links before scoring; the first occurrence wins.
// The same story published under different links is left to the
// Deduplicator, which knows scores and source priorities.
func Unique(articles []Article) ([]Article, int) {
	seen := map[string]struct{}{}
	out := make([]Article, 0, len(articles))
	dropped := 0

	for _, a := range articles {
		if link := strings.TrimSpace(a.Link); link != "" {
			if _, dup := seen[link]; dup {
				dropped++
				continue
			}
			seen[link] = struct{}{}
		}
		out = append(out, a)
	}
	return out, dropped
}

// FilterRecent keeps articles published within maxAge of now, newest first.
// Undated articles are dropped.
func FilterRecent(articles []Article, maxAge time.Duration, now time.Time) []Article {
	cutoff := now.Add(-maxAge)
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if !a.PublishedAt.IsZero() && !a.PublishedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// FallbackSummary builds a short extract when no model summary is available:
// the first two sentences of reasonable length, or a clipped prefix.
func FallbackSummary(content string) string {
	c := strings.TrimSpace(content)
	if c == "" {
		return ""
	}
	var picked []string
	for _, s := range strings.Split(c, ".") {
		s = strings.TrimSpace(s)
		if len(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}
	if len(picked) == 0 {
		r := []rune(c)
		if len(r) > 160 {
			return string(r[:160]) + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}

// FormatMessage renders an article as a short Markdown notification.
func FormatMessage(a Article) string {
	title := a.TitleEN
	if title == "" {
		title = a.Title
	}
	var b strings.Builder
	b.WriteString("🏁 *" + title + "*\n")
	if a.SummaryEN != "" {
		b.WriteString("🇬🇧 " + a.SummaryEN + "\n")
	}
	if a.SummaryFR != "" {
		b.WriteString("🇫🇷 " + a.SummaryFR + "\n")
	}
	if a.Link != "" {
		b.WriteString(a.Link + "\n")
	}
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return b.String()
}
