package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasGut/motorsport-digest/internal/logger"
)

const articlePage = `<html><head><title>Page title</title></head><body>
<nav><p>Home</p></nav>
<h1>Ferrari brings new floor to Barcelona</h1>
<article>
<p>Ferrari has brought a revised floor to Barcelona as part of its first upgrade package of the season.</p>
<p>Subscribe to our newsletter for more technical analysis of every car on the grid this year.</p>
<p>The team says wind tunnel data points to a gain in rear downforce through the high-speed corners.</p>
<p>Drivers will evaluate the new parts across both days before the team commits to the race specification.</p>
<p>Short.</p>
</article>
</body></html>`

func TestExtractFromHTMLGeneric(t *testing.T) {
	got, err := ExtractFromHTML([]byte(articlePage), "https://example.com/f1/floor")
	require.NoError(t, err)

	assert.Equal(t, "Ferrari brings new floor to Barcelona", got.Title)
	assert.Contains(t, got.Content, "Ferrari has brought a revised floor")
	assert.Contains(t, got.Content, "rear downforce")
	assert.Contains(t, got.Content, "race specification")
	assert.NotContains(t, got.Content, "Subscribe")
	assert.NotContains(t, got.Content, "Short.")
	assert.Equal(t, 3, strings.Count(got.Content, "\n\n")+1)
}

func TestExtractFromHTMLSiteSelectors(t *testing.T) {
	page := `<html><body><h1>Alpine confirms reserve driver</h1>
<div class="sidebar"><p>This sidebar paragraph is long enough to be picked by the generic cascade.</p></div>
<div class="entry-content">
<p>Alpine has confirmed its reserve driver for the coming season after a long evaluation programme.</p>
<p>The driver will split simulator duties with the test team and attend every European round.</p>
<p>Team principal comments suggest a race seat could follow if results in testing are strong.</p>
</div></body></html>`

	got, err := ExtractFromHTML([]byte(page), "https://www.the-race.com/formula-1/alpine-reserve/")
	require.NoError(t, err)
	assert.Contains(t, got.Content, "Alpine has confirmed its reserve driver")
	assert.NotContains(t, got.Content, "sidebar")
}

func TestExtractFromHTMLEmpty(t *testing.T) {
	_, err := ExtractFromHTML([]byte(`<html><body></body></html>`), "https://example.com/empty")
	assert.Error(t, err)
}

func TestCleanContent(t *testing.T) {
	in := "First line of a paragraph that wraps\nonto a second line and ends here.\n\n" +
		"Follow us on every social network today.\n" +
		"Another complete paragraph with\x00 enough words in it.\n" +
		"tiny"

	got := cleanContent(in)
	assert.Equal(t, "First line of a paragraph that wraps onto a second line and ends here.\n\n"+
		"Another complete paragraph with enough words in it.", got)
	assert.Equal(t, "", cleanContent(" \x00 "))

	long := strings.Repeat("This sentence is here to make the content longer than the limit.\n", 200)
	assert.LessOrEqual(t, len(cleanContent(long)), keepContentLen)
}

func TestExtractBatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/a", "/b":
			fmt.Fprint(w, articlePage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 0, logger.Discard())
	urls := []string{srv.URL + "/a", srv.URL + "/a", srv.URL + "/missing", srv.URL + "/b", ""}

	got := c.ExtractBatch(context.Background(), urls, 0, 1)
	assert.Len(t, got, 2)
	assert.Contains(t, got, srv.URL+"/a")
	assert.Contains(t, got, srv.URL+"/b")
	assert.Equal(t, int32(3), hits.Load())

	got = c.ExtractBatch(context.Background(), urls, 1, 1)
	assert.Len(t, got, 1)
}

func TestScrapeListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<article><h3>Toyota wins the 6 Hours of Spa</h3><a href="/en/news/toyota-spa">Read</a></article>
</body></html>`)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 0, logger.Discard())
	got, err := c.ScrapeListing(context.Background(), "FIA_WEC", srv.URL+"/fr/page/news/30", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, srv.URL+"/en/news/toyota-spa", got[0].Link)
	assert.Equal(t, "FIA_WEC", got[0].Source)
}
