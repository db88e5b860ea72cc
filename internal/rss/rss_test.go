package rss

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasGut/motorsport-digest/internal/logger"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Autosport</title>
  <item>
    <title>Cadillac launches stealthy first F1 livery for Barcelona testing</title>
    <link>https://www.autosport.com/f1/news/cadillac-livery/</link>
    <description><![CDATA[<p>The new team <b>revealed</b> its car.</p>]]></description>
    <pubDate>Mon, 26 Jan 2026 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Toyota confirms Le Mans Hypercar line-up</title>
    <link>https://www.autosport.com/wec/news/toyota/</link>
    <description>Plain excerpt</description>
  </item>
  <item>
    <title></title>
    <link>https://www.autosport.com/empty</link>
  </item>
</channel>
</rss>`

func TestParseString(t *testing.T) {
	articles, err := ParseString("Autosport", sampleFeed)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "Cadillac launches stealthy first F1 livery for Barcelona testing", first.Title)
	assert.Equal(t, "Autosport", first.Source)
	assert.Equal(t, "The new team revealed its car.", first.Excerpt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)))
	assert.Empty(t, first.Body)

	assert.Equal(t, "Plain excerpt", articles[1].Excerpt)
	assert.True(t, articles[1].PublishedAt.IsZero())

	_, err = ParseString("broken", "not a feed")
	assert.Error(t, err)
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed" {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(sampleFeed))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 2, logger.Discard())

	articles, err := f.FetchAll(context.Background(), []Source{
		{Name: "Autosport", URL: srv.URL + "/feed"},
		{Name: "Broken", URL: srv.URL + "/missing"},
	})
	require.NoError(t, err)
	assert.Len(t, articles, 2)

	_, err = f.FetchAll(context.Background(), []Source{{Name: "Broken", URL: srv.URL + "/missing"}})
	assert.Error(t, err)

	articles, err = f.FetchAll(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, articles)
}

func TestLoadSources(t *testing.T) {
	cfg, err := LoadSources(filepath.Join("..", "..", "configs", "feeds.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Feeds, 7)
	assert.Len(t, cfg.Scrape, 2)
	assert.Equal(t, "F1_Official", cfg.Feeds[0].Name)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("feeds: []\n"), 0o644))
	_, err = LoadSources(empty)
	assert.True(t, errors.Is(err, ErrNoSources))

	noURL := filepath.Join(dir, "nourl.yaml")
	require.NoError(t, os.WriteFile(noURL, []byte("feeds:\n  - name: X\n"), 0o644))
	_, err = LoadSources(noURL)
	assert.ErrorContains(t, err, "name and url are required")

	_, err = LoadSources(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
