package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	maxPageBytes   = 5 << 20
	minContentLen  = 200 // below this the selector result is discarded for readability
	minParagraph   = 50
	maxContentLen  = 6000
	keepContentLen = 5000
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Client fetches pages politely: one shared pacer for the whole run and a
// rotating browser User-Agent.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient builds a client; interval 0 disables pacing.
func NewClient(timeout, interval time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,fr;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return body, nil
}

// ExtractFullArticle gets full text of article by URL
func (c *Client) ExtractFullArticle(ctx context.Context, pageURL string) (*ArticleContent, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ExtractFromHTML(body, pageURL)
}

// ExtractFromHTML runs the selector cascade on a downloaded page and falls
// back to readability when the selectors find too little.
func ExtractFromHTML(body []byte, pageURL string) (*ArticleContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	title := extractTitle(doc)
	content := extractContentBySource(doc, pageURL)

	if len(content) < minContentLen {
		if u, err := url.Parse(pageURL); err == nil {
			if art, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
				if text := cleanContent(art.TextContent); len(text) > len(content) {
					content = text
				}
				if title == "" {
					title = strings.TrimSpace(art.Title)
				}
			}
		}
	}

	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   title,
		Content: content,
		URL:     pageURL,
	}, nil
}

// ExtractBatch extracts up to limit unique URLs (0 = all) with bounded
// concurrency. Failures are logged and left out of the result.
func (c *Client) ExtractBatch(ctx context.Context, urls []string, limit, concurrency int) map[string]*ArticleContent {
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" && !slices.Contains(unique, u) {
			unique = append(unique, u)
		}
	}
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}

	var mu sync.Mutex
	result := make(map[string]*ArticleContent, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, u := range unique {
		g.Go(func() error {
			c.log.Debug("extracting article", "n", i+1, "total", len(unique), "url", u)
			article, err := c.ExtractFullArticle(ctx, u)
			if err != nil {
				c.log.Warn("can't get content", "url", u, "error", err)
				return nil
			}
			if len(article.Content) <= 100 {
				c.log.Debug("content too short", "url", u, "chars", len(article.Content))
				return nil
			}
			mu.Lock()
			result[u] = article
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.log.Info("extraction done", "requested", len(unique), "extracted", len(result))
	return result
}

// siteSelectors lists paragraph selectors per outlet, most specific first.
var siteSelectors = map[string][]string{
	"formula1.com":    {".f1-article--rich-text p", "article p", "main p"},
	"fiawec.com":      {".article-content p", ".news-content p", "article p"},
	"autosport.com":   {".ms-article-content p", ".ms-article__body p", "article p"},
	"motorsport.com":  {".ms-article-content p", ".ms-article__body p", "article p"},
	"the-race.com":    {".entry-content p", ".article-content p", "article p"},
	"racefans.net":    {".entry-content p", "article p"},
	"f1technical.net": {".content p", ".postbody p", "article p"},
}

// extractContentBySource gets content by news site
func extractContentBySource(doc *goquery.Document, pageURL string) string {
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	content := ""
	if selectors, ok := siteSelectors[host]; ok {
		content = collectParagraphs(doc, selectors, 1)
	}
	if content == "" {
		content = extractGenericContent(doc)
	}
	return cleanContent(content)
}

// collectParagraphs tries selectors in order and stops at the first one
// yielding at least enough paragraphs.
func collectParagraphs(doc *goquery.Document, selectors []string, enough int) string {
	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > minParagraph {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= enough {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// extractGenericContent is universal parser for any site
func extractGenericContent(doc *goquery.Document) string {
	containers := []string{
		"article",
		"main",
		`[class*="article-content"]`,
		`[class*="post-content"]`,
		`[class*="entry-content"]`,
		`[itemprop="articleBody"]`,
		".article-body",
		".story-body",
		".content",
	}

	for _, selector := range containers {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		var paragraphs []string
		container.Find("p").Each(func(i int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); len(text) > minParagraph {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}

	return collectParagraphs(doc, []string{"p"}, 1)
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		`meta[property="og:title"]`,
		"title",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := sel.Text()
		if content, ok := sel.Attr("content"); ok {
			title = content
		}
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "advertisement", "sign up", "log in",
	"read more", "share this", "follow us", "all rights reserved", "related articles",
}

// cleanContent cleans and normalizes text: drops NULs, boilerplate lines and
// fragments, joins wrapped lines into paragraphs and bounds the length.
func cleanContent(content string) string {
	content = strings.ReplaceAll(content, "\x00", "")
	if strings.TrimSpace(content) == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string
	var currentParagraph strings.Builder

	flush := func() {
		if currentParagraph.Len() == 0 {
			return
		}
		paragraph := strings.Join(strings.Fields(currentParagraph.String()), " ")
		if len(paragraph) > 30 {
			cleanLines = append(cleanLines, paragraph)
		}
		currentParagraph.Reset()
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		// Skip empty and very short lines
		if len(line) < 8 {
			flush()
			continue
		}

		lower := strings.ToLower(line)
		isJunk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				isJunk = true
				break
			}
		}
		if isJunk {
			continue
		}

		if currentParagraph.Len() > 0 {
			currentParagraph.WriteString(" ")
		}
		currentParagraph.WriteString(line)

		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	flush()

	resultText := strings.Join(cleanLines, "\n\n")

	// Limit length, keep full paragraphs
	if len(resultText) > maxContentLen {
		var selected []string
		total := 0
		for _, paragraph := range cleanLines {
			if total+len(paragraph) >= keepContentLen {
				break
			}
			selected = append(selected, paragraph)
			total += len(paragraph) + 2
		}
		if len(selected) > 0 {
			resultText = strings.Join(selected, "\n\n")
		}
	}

	return resultText
}
