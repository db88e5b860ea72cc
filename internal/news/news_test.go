package news

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnique(t *testing.T) {
	in := []Article{
		{Title: "A", Excerpt: "one", Link: "https://www.autosport.com/f1/news/a/"},
		{Title: "A again", Excerpt: "two", Link: " https://www.autosport.com/f1/news/a/ "},
		{Title: "A no slash", Excerpt: "one", Link: "https://www.autosport.com/f1/news/a"},
		{Title: "B", Excerpt: "same", Link: "https://the-race.com/b"},
		{Title: "B", Excerpt: "same", Link: "https://racefans.net/b"},
		{Title: "C", Excerpt: "three"},
		{Title: "C", Excerpt: "three"},
	}

	out, dropped := Unique(in)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"A", "A no slash", "B", "B", "C", "C"}, titles(out))
	assert.Equal(t, "https://racefans.net/b", out[3].Link, "same headline from another outlet is kept")
}

func TestFilterRecent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	in := []Article{
		{Title: "fresh", PublishedAt: now.Add(-2 * time.Hour)},
		{Title: "old", PublishedAt: now.Add(-49 * time.Hour)},
		{Title: "undated"},
		{Title: "edge", PublishedAt: now.Add(-48 * time.Hour)},
	}

	out := FilterRecent(in, 48*time.Hour, now)
	assert.Equal(t, []string{"fresh", "edge"}, titles(out))
}

func TestFilterByScoreAndTop(t *testing.T) {
	in := []Article{
		scored("low", 10, ""),
		scored("mid", 30, ""),
		{Title: "unscored", Score: 90},
		scored("high", 80, ""),
		scored("floor", 20, ""),
	}

	filtered := FilterByScore(in, DefaultMinScore)
	assert.Equal(t, []string{"mid", "high", "floor"}, titles(filtered))

	assert.Equal(t, []string{"high", "mid"}, titles(Top(filtered, 2)))
	assert.Len(t, Top(filtered, 10), 3)
	assert.Len(t, Top(filtered, -1), 3)
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats([]Article{scored("a", 10, ""), scored("b", 40, ""), scored("c", 60, ""), scored("d", 90, "")})
	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 50.0, st.Mean, 1e-9)
	assert.InDelta(t, 50.0, st.Median, 1e-9)
	assert.Equal(t, 90, st.Max)
	assert.Equal(t, 2, st.Above50)
	assert.Equal(t, 3, st.Above30)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}

func TestFallbackSummary(t *testing.T) {
	content := "Short. Ferrari brought a new floor to Barcelona this week. The team ran it on both cars during the test. Third sentence here is also long."
	assert.Equal(t, "Ferrari brought a new floor to Barcelona this week. The team ran it on both cars during the test.", FallbackSummary(content))

	long := strings.Repeat("Pit lane. ", 20)
	got := FallbackSummary(long)
	require.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 163, len([]rune(got)))

	assert.Equal(t, "", FallbackSummary("   "))
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(Article{
		Title:     "Original",
		TitleEN:   "Cadillac unveils F1 livery",
		SummaryEN: "Cadillac showed its livery.",
		SummaryFR: "Cadillac a dévoilé sa livrée.",
		Link:      "https://example.com/a",
	})
	assert.Contains(t, msg, "*Cadillac unveils F1 livery*")
	assert.Contains(t, msg, "🇬🇧 Cadillac showed its livery.")
	assert.Contains(t, msg, "🇫🇷 Cadillac a dévoilé sa livrée.")
	assert.Contains(t, msg, "https://example.com/a")
	assert.NotContains(t, msg, "Original")
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, ContentKey("Title", "Body"), ContentKey(" title ", "body "))
	assert.NotEqual(t, ContentKey("Title", "Body"), ContentKey("Title", "Other"))
}
