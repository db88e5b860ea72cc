package news

import (
	"slices"
	"sort"
)

// DefaultMinScore is the relevance floor applied before deduplication.
const DefaultMinScore = 20

// Stats summarises the score distribution of one run.
type Stats struct {
	Count   int
	Mean    float64
	Median  float64
	Max     int
	Above50 int
	Above30 int
}

// FilterByScore keeps scored articles whose score is at least minScore.
func FilterByScore(articles []Article, minScore int) []Article {
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if a.Scored && a.Score >= minScore {
			out = append(out, a)
		}
	}
	return out
}

// Top returns the n best articles, highest score first.
func Top(articles []Article, n int) []Article {
	ranked := slices.Clone(articles)
	sortByScore(ranked)
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// ComputeStats returns the distribution of scores across articles.
func ComputeStats(articles []Article) Stats {
	st := Stats{Count: len(articles)}
	if st.Count == 0 {
		return st
	}

	scores := make([]int, 0, len(articles))
	total := 0
	for _, a := range articles {
		scores = append(scores, a.Score)
		total += a.Score
		st.Max = max(st.Max, a.Score)
		if a.Score > 50 {
			st.Above50++
		}
		if a.Score > 30 {
			st.Above30++
		}
	}
	sort.Ints(scores)

	st.Mean = float64(total) / float64(st.Count)
	mid := st.Count / 2
	if st.Count%2 == 1 {
		st.Median = float64(scores[mid])
	} else {
		st.Median = float64(scores[mid-1]+scores[mid]) / 2
	}
	return st
}
