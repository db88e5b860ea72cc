package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/NicolasGut/motorsport-digest/internal/news"
)

type adjustmentsFile struct {
	ForcedScores map[string]int    `json:"forced_scores"`
	BlockedURLs  []string          `json:"blocked_urls"`
	Notes        map[string]string `json:"notes"`
}

// Adjustments holds editor overrides: forced scores, blocked links and notes,
// kept in a JSON file next to the database.
type Adjustments struct {
	path string
	mu   sync.RWMutex
	data adjustmentsFile
}

// LoadAdjustments reads the file at path; a missing file gives empty adjustments.
func LoadAdjustments(path string) (*Adjustments, error) {
	a := &Adjustments{path: path}
	a.data.ForcedScores = map[string]int{}
	a.data.Notes = map[string]string{}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read adjustments file: %w", err)
	}
	if len(raw) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(raw, &a.data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal adjustments: %w", err)
	}
	if a.data.ForcedScores == nil {
		a.data.ForcedScores = map[string]int{}
	}
	if a.data.Notes == nil {
		a.data.Notes = map[string]string{}
	}
	return a, nil
}

// Save writes the adjustments back to disk.
func (a *Adjustments) Save() error {
	a.mu.RLock()
	raw, err := json.MarshalIndent(a.data, "", "  ")
	a.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create adjustments dir: %w", err)
	}
	if err := os.WriteFile(a.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write adjustments file: %w", err)
	}
	return nil
}

// Force pins the score of a link (0-100) and saves.
func (a *Adjustments) Force(link string, score int, note string) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("forced score %d out of range 0-100", score)
	}
	a.mu.Lock()
	a.data.ForcedScores[link] = score
	if note != "" {
		a.data.Notes[link] = note
	}
	a.mu.Unlock()
	return a.Save()
}

// Block excludes a link from every digest and saves.
func (a *Adjustments) Block(link, reason string) error {
	a.mu.Lock()
	if !slices.Contains(a.data.BlockedURLs, link) {
		a.data.BlockedURLs = append(a.data.BlockedURLs, link)
	}
	if reason != "" {
		a.data.Notes[link] = "BLOCKED: " + reason
	}
	a.mu.Unlock()
	return a.Save()
}

// Unblock reports whether the link was blocked; it saves only on change.
func (a *Adjustments) Unblock(link string) (bool, error) {
	a.mu.Lock()
	i := slices.Index(a.data.BlockedURLs, link)
	if i >= 0 {
		a.data.BlockedURLs = slices.Delete(a.data.BlockedURLs, i, i+1)
	}
	a.mu.Unlock()
	if i < 0 {
		return false, nil
	}
	return true, a.Save()
}

// Reset drops every adjustment for a link.
func (a *Adjustments) Reset(link string) error {
	a.mu.Lock()
	delete(a.data.ForcedScores, link)
	delete(a.data.Notes, link)
	a.data.BlockedURLs = slices.DeleteFunc(a.data.BlockedURLs, func(u string) bool { return u == link })
	a.mu.Unlock()
	return a.Save()
}

// Status describes how a link is adjusted, for listings.
func (a *Adjustments) Status(link string, score int) (adjusted int, blocked bool, note string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	adjusted = score
	if forced, ok := a.data.ForcedScores[link]; ok {
		adjusted = forced
	}
	return adjusted, slices.Contains(a.data.BlockedURLs, link), a.data.Notes[link]
}

// Apply returns a copy of articles with forced scores set, blocked links
// removed, sorted by score descending.
func (a *Adjustments) Apply(articles []news.Article) []news.Article {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]news.Article, 0, len(articles))
	for _, art := range articles {
		if slices.Contains(a.data.BlockedURLs, art.Link) {
			continue
		}
		if forced, ok := a.data.ForcedScores[art.Link]; ok {
			art.Score = forced
			art.Scored = true
		}
		out = append(out, art)
	}
	slices.SortStableFunc(out, func(x, y news.Article) int { return y.Score - x.Score })
	return out
}

// Len returns the number of forced and blocked links.
func (a *Adjustments) Len() (forced, blocked int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data.ForcedScores), len(a.data.BlockedURLs)
}
