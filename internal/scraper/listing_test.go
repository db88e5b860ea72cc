package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestParseListingArticles(t *testing.T) {
	page := `<html><body>
<article>
  <h2>Porsche Penske reveals 2026 Hypercar livery</h2>
  <a href="/en/news/porsche-livery">more</a>
  <p class="news-intro">The 963 gets a new look for the season.</p>
  <time datetime="2026-01-30T10:00:00Z">30 Jan</time>
</article>
<article>
  <h2>Short</h2>
  <a href="/en/news/short">more</a>
</article>
<article>
  <h3>Ferrari confirms driver line-up for Qatar</h3>
  <a href="https://www.fiawec.com/en/news/ferrari-qatar">more</a>
  <p>First paragraph used as excerpt.</p>
  <span class="date">2026-01-29</span>
</article>
<article>
  <h3>Porsche Penske reveals 2026 Hypercar livery</h3>
  <a href="/en/news/porsche-livery">duplicate link</a>
</article>
<article>
  <h3>Cadillac announces third car for Le Mans</h3>
  <a href="news/cadillac-third-car">more</a>
</article>
</body></html>`

	got, err := ParseListing(strings.NewReader(page), "FIA_WEC", "https://www.fiawec.com/fr/page/news/30", 20, listingNow)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Porsche Penske reveals 2026 Hypercar livery", got[0].Title)
	assert.Equal(t, "https://www.fiawec.com/en/news/porsche-livery", got[0].Link)
	assert.Equal(t, "The 963 gets a new look for the season.", got[0].Excerpt)
	assert.True(t, got[0].PublishedAt.Equal(time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "FIA_WEC", got[0].Source)

	assert.Equal(t, "https://www.fiawec.com/en/news/ferrari-qatar", got[1].Link)
	assert.Equal(t, "First paragraph used as excerpt.", got[1].Excerpt)
	assert.True(t, got[1].PublishedAt.Equal(time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "https://www.fiawec.com/news/cadillac-third-car", got[2].Link)
	assert.Equal(t, listingNow, got[2].PublishedAt)
}

func TestParseListingFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		wantLink string
	}{
		{
			name:     "news blocks",
			page:     `<div class="news-item"><h4>Red Bull test new power unit parts</h4><a href="/news/rb">x</a></div>`,
			wantLink: "https://www.f1technical.net/news/rb",
		},
		{
			name:     "forum topics",
			page:     `<ul><li><a class="topictitle" href="./viewtopic.php?t=42">Mercedes front wing analysis thread</a></li></ul>`,
			wantLink: "https://www.f1technical.net/viewtopic.php?t=42",
		},
		{
			name:     "links to news pages",
			page:     `<ul><li><a href="/news/23123">McLaren simulator correlation explained</a></li><li><a href="/about">About this website</a></li></ul>`,
			wantLink: "https://www.f1technical.net/news/23123",
		},
		{
			name:     "cards",
			page:     `<div class="card"><h3>Williams confirms new technical director</h3><a href="/x/williams">x</a></div>`,
			wantLink: "https://www.f1technical.net/x/williams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListing(strings.NewReader("<html><body>"+tt.page+"</body></html>"), "F1_Technical", "https://www.f1technical.net/news/", 20, listingNow)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantLink, got[0].Link)
		})
	}
}

func TestParseListingSkipsNavigationAndLimits(t *testing.T) {
	page := `<html><body>
<a class="topictitle" href="/login.php">Login to your account now</a>
<a class="topictitle" href="/viewtopic.php?t=1">Aston Martin upgrade package details</a>
<a class="topictitle" href="/viewtopic.php?t=2">Haas floor development progress</a>
<a class="topictitle" href="/viewtopic.php?t=3">Sauber gearbox problems explained</a>
</body></html>`

	got, err := ParseListing(strings.NewReader(page), "F1_Technical", "https://www.f1technical.net/news/", 2, listingNow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Aston Martin upgrade package details", got[0].Title)
	assert.Equal(t, "Haas floor development progress", got[1].Title)
}

func TestParseDate(t *testing.T) {
	assert.True(t, parseDate("2026-01-29").Equal(time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)))
	assert.True(t, parseDate("January 2, 2026").Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, parseDate("yesterday").IsZero())
}
