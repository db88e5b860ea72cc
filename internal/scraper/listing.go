package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/NicolasGut/motorsport-digest/internal/news"
)

const minTitleLen = 10

var (
	itemClassRe    = regexp.MustCompile(`(?i)(news|article|post|item)`)
	cardClassRe    = regexp.MustCompile(`(?i)(card|box|tile)`)
	newsHrefRe     = regexp.MustCompile(`/(news|article)/|viewtopic`)
	topicClassRe   = regexp.MustCompile(`(?i)topictitle`)
	excerptClassRe = regexp.MustCompile(`(?i)(summary|excerpt|description|intro|lead)`)
	dateClassRe    = regexp.MustCompile(`(?i)date|time`)

	navTitles = []string{"login", "register", "search", "profile", "logout", "faq", "forum index", "board index"}

	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006",
		"02.01.2006",
		"January 2, 2006",
		"2 January 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
	}
)

// ScrapeListing downloads a news listing page and turns its entries into articles.
func (c *Client) ScrapeListing(ctx context.Context, source, pageURL string, limit int) ([]news.Article, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", source, err)
	}
	articles, err := ParseListing(bytes.NewReader(body), source, pageURL, limit, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		c.log.Warn("no articles found, site structure may have changed", "source", source, "url", pageURL)
	} else {
		c.log.Info("listing scraped", "source", source, "articles", len(articles))
	}
	return articles, nil
}

// ParseListing extracts entries from a listing page. It tries, in order:
// <article> elements, news/post/item blocks, forum topic links, links to
// news pages, then card/box/tile blocks. Entries without a date get now.
func ParseListing(r io.Reader, source, pageURL string, limit int, now time.Time) ([]news.Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", source, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url %s: %w", pageURL, err)
	}

	nodes := findEntries(doc)
	seen := map[string]struct{}{}
	var out []news.Article

	nodes.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}

		title := entryTitle(s)
		if utf8.RuneCountInString(title) < minTitleLen || isNavigation(title) {
			return true
		}
		link := absoluteLink(base, entryLink(s))
		if link == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		published := entryDate(s)
		if published.IsZero() {
			published = now
		}
		out = append(out, news.Article{
			Title:       title,
			Link:        link,
			Source:      source,
			Excerpt:     entryExcerpt(s),
			PublishedAt: published,
		})
		return true
	})
	return out, nil
}

func findEntries(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article"); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("div").FilterFunction(classMatches(itemClassRe)); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("a").FilterFunction(classMatches(topicClassRe)); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return newsHrefRe.MatchString(href)
	}); sel.Length() > 0 {
		return sel
	}
	return doc.Find("div").FilterFunction(classMatches(cardClassRe))
}

func classMatches(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && re.MatchString(class)
	}
}

func entryTitle(s *goquery.Selection) string {
	if s.Is("a") {
		return collapse(s.Text())
	}
	if h := s.Find("h1, h2, h3, h4, h5").First(); h.Length() > 0 {
		return collapse(h.Text())
	}
	return collapse(s.Find("a").First().Text())
}

func entryLink(s *goquery.Selection) string {
	if s.Is("a") {
		href, _ := s.Attr("href")
		return href
	}
	href, _ := s.Find("a[href]").First().Attr("href")
	return href
}

func entryExcerpt(s *goquery.Selection) string {
	if ex := s.Find("p, div").FilterFunction(classMatches(excerptClassRe)).First(); ex.Length() > 0 {
		return collapse(ex.Text())
	}
	return collapse(s.Find("p").First().Text())
}

func entryDate(s *goquery.Selection) time.Time {
	candidates := s.Find("time")
	if candidates.Length() == 0 {
		candidates = s.Find("span").FilterFunction(classMatches(dateClassRe))
	}
	el := candidates.First()
	if el.Length() == 0 {
		return time.Time{}
	}
	raw, ok := el.Attr("datetime")
	if !ok {
		raw = el.Text()
	}
	return parseDate(collapse(raw))
}

func parseDate(raw string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// absoluteLink completes a relative href against the site root.
func absoluteLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	root := base.Scheme + "://" + base.Host
	if strings.HasPrefix(href, "/") {
		return root + href
	}
	return root + "/" + strings.TrimPrefix(href, "./")
}

func isNavigation(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range navTitles {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
