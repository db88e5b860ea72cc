package news

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Article is a single motorsport story moving through one pipeline run.
type Article struct {
	Title       string
	Body        string // extracted full text, may be empty
	Excerpt     string // feed-provided description
	Source      string
	Link        string
	PublishedAt time.Time

	Score  int
	Scored bool

	TitleFR   string
	TitleEN   string
	SummaryFR string
	SummaryEN string
}

// Text returns the body, falling back to the feed excerpt.
func (a Article) Text() string {
	if strings.TrimSpace(a.Body) != "" {
		return a.Body
	}
	return a.Excerpt
}

// HasSummary reports whether both language summaries are present.
func (a Article) HasSummary() bool {
	return a.SummaryFR != "" && a.SummaryEN != ""
}

// ContentKey is a stable hash of title and text, used to cache summaries.
func ContentKey(title, text string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(title) + "|" + strings.TrimSpace(text))))
	return hex.EncodeToString(h.Sum(nil))
}
