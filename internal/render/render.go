// Package render writes the bilingual digest pages.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/NicolasGut/motorsport-digest/internal/news"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ErrNoArticles is returned when there is nothing to publish.
var ErrNoArticles = errors.New("no summarized articles to render")

const (
	LatestFile = "latest.html"
	IndexFile  = "index.html"

	archivePrefix = "digest-"
	archiveLayout = "2006-01-02"
)

// Page is the data behind one digest page.
type Page struct {
	Generated  time.Time
	Articles   []news.Article // summarized, shown with FR/EN titles and summaries
	Additional []news.Article // titles only
	Analyzed   int
	RunID      string
	RepoURL    string
}

// ArchiveEntry is one dated digest listed on the index page.
type ArchiveEntry struct {
	File string
	Date time.Time
}

// Published lists the files written by Publish.
type Published struct {
	Latest  string
	Archive string
	Index   string
}

type Renderer struct {
	outDir string
	digest *template.Template
	index  *template.Template
}

var sourceLanguages = map[string]string{
	"f1official":   "EN",
	"racefans":     "EN",
	"therace":      "EN",
	"autosport":    "EN",
	"motorsport":   "EN",
	"sportscar365": "EN",
	"fiawec":       "FR",
}

// SourceLanguage returns the language badge of a source, EN by default.
func SourceLanguage(source string) string {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(source))
	for k, lang := range sourceLanguages {
		if strings.Contains(key, k) {
			return lang
		}
	}
	return "EN"
}

var funcs = template.FuncMap{
	"sourceLang": SourceLanguage,
	"titleFR": func(a news.Article) string {
		if a.TitleFR != "" {
			return a.TitleFR
		}
		return a.Title
	},
	"titleEN": func(a news.Article) string {
		if a.TitleEN != "" {
			return a.TitleEN
		}
		return a.Title
	},
	"published": func(t time.Time) string {
		if t.IsZero() {
			return "N/A"
		}
		return t.Format("02/01/2006")
	},
}

func New(outDir string) (*Renderer, error) {
	digest, err := template.New("digest.html").Funcs(funcs).ParseFS(templatesFS, "templates/digest.html")
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	index, err := template.New("index.html").ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	return &Renderer{outDir: outDir, digest: digest, index: index}, nil
}

// RenderDigest writes the digest page for page to w.
func (r *Renderer) RenderDigest(w io.Writer, page Page) error {
	if len(page.Articles) == 0 {
		return ErrNoArticles
	}
	if page.Analyzed == 0 {
		page.Analyzed = len(page.Articles) + len(page.Additional)
	}
	return r.digest.Execute(w, page)
}

// RenderIndex writes the archive index, newest first.
func (r *Renderer) RenderIndex(w io.Writer, entries []ArchiveEntry) error {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return r.index.Execute(w, entries)
}

// Publish writes latest.html, the dated archive copy and a fresh index.html.
func (r *Renderer) Publish(page Page) (Published, error) {
	var buf bytes.Buffer
	if err := r.RenderDigest(&buf, page); err != nil {
		return Published{}, err
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return Published{}, fmt.Errorf("create output dir: %w", err)
	}

	out := Published{
		Latest:  filepath.Join(r.outDir, LatestFile),
		Archive: filepath.Join(r.outDir, archivePrefix+page.Generated.Format(archiveLayout)+".html"),
		Index:   filepath.Join(r.outDir, IndexFile),
	}
	for _, path := range []string{out.Latest, out.Archive} {
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return Published{}, fmt.Errorf("write %s: %w", path, err)
		}
	}

	entries, err := r.Archives()
	if err != nil {
		return Published{}, err
	}
	buf.Reset()
	if err := r.RenderIndex(&buf, entries); err != nil {
		return Published{}, fmt.Errorf("render index: %w", err)
	}
	if err := os.WriteFile(out.Index, buf.Bytes(), 0o644); err != nil {
		return Published{}, fmt.Errorf("write %s: %w", out.Index, err)
	}
	return out, nil
}

// Archives lists the dated digests present in the output directory.
func (r *Renderer) Archives() ([]ArchiveEntry, error) {
	files, err := filepath.Glob(filepath.Join(r.outDir, archivePrefix+"*.html"))
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	var entries []ArchiveEntry
	for _, f := range files {
		name := filepath.Base(f)
		date, err := time.Parse(archiveLayout, strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ".html"))
		if err != nil {
			continue
		}
		entries = append(entries, ArchiveEntry{File: name, Date: date})
	}
	return entries, nil
}
