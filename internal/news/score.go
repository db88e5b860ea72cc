package news

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	technicalCap = 60
	businessCap  = 40
	generalCap   = 20
	maxScore     = 100

	driverBonus      = 5
	constructorBonus = 3
	titleBonus       = 10
	enduranceBonus   = 30
	lengthBonus      = 5
)

// Verdict tells why an article was filtered out. Empty means it was scored.
type Verdict string

const (
	Accepted      Verdict = ""
	RejectedSport Verdict = "rejected_sport"
	Gossip        Verdict = "gossip"
	OffTopic      Verdict = "off_topic"
)

// Breakdown is the itemised result of scoring one article.
type Breakdown struct {
	Verdict Verdict

	Technical int
	Business  int
	General   int

	Driver      int
	Constructor int
	Title       int
	Endurance   int
	Length      int

	Total int
}

// Scorer assigns a relevance score in [0,100]. It holds no mutable state
// and may be shared between goroutines.
type Scorer struct {
	rules Rules
}

func NewScorer(rules Rules) *Scorer {
	return &Scorer{rules: rules.normalized()}
}

// Score returns the relevance of an article. Missing fields are empty strings.
// The source id is accepted for interface symmetry and does not affect the score.
func (s *Scorer) Score(body, title, source string) int {
	return s.Explain(body, title, source).Total
}

// Explain scores an article and reports how each part contributed.
func (s *Scorer) Explain(body, title, _ string) Breakdown {
	combined := strings.ToLower(title + " " + title + " " + body)
	titleLower := strings.ToLower(title)
	r := s.rules

	if containsAny(combined, r.RejectedSports) {
		exempt := containsAny(combined, r.AcceptedSports) && containsAny(combined, r.ExceptionTerms)
		if !exempt {
			return Breakdown{Verdict: RejectedSport}
		}
	}
	if containsAny(combined, r.Gossip) {
		return Breakdown{Verdict: Gossip}
	}
	if !containsAny(combined, r.AcceptedSports) && !containsAny(combined, r.Teams) {
		return Breakdown{Verdict: OffTopic}
	}

	b := Breakdown{
		Technical: tierSum(combined, r.Technical, technicalCap),
		Business:  tierSum(combined, r.Business, businessCap),
		General:   tierSum(combined, r.General, generalCap),
	}
	if containsAny(combined, r.MajorDrivers) {
		b.Driver = driverBonus
	}
	if containsAny(combined, r.MajorConstructors) {
		b.Constructor = constructorBonus
	}
	if containsAny(titleLower, r.AcceptedSports) {
		b.Title = titleBonus
	}
	if containsAny(combined, r.Endurance) {
		b.Endurance = enduranceBonus
	}
	if utf8.RuneCountInString(body) > r.LengthThreshold {
		b.Length = lengthBonus
	}

	b.Total = min(maxScore,
		b.Technical+b.Business+b.General+b.Driver+b.Constructor+b.Title+b.Endurance+b.Length)
	return b
}

// ScoreAll scores every article and returns them sorted by descending
// score. Equal scores keep their input order.
func (s *Scorer) ScoreAll(articles []Article) []Article {
	ranked := make([]Article, len(articles))
	for i, a := range articles {
		a.Score = s.Score(a.Text(), a.Title, a.Source)
		a.Scored = true
		ranked[i] = a
	}
	sortByScore(ranked)
	return ranked
}

func tierSum(text string, tier []WeightedTerm, limit int) int {
	sum := 0
	for _, wt := range tier {
		if strings.Contains(text, wt.Term) {
			sum += wt.Weight
		}
	}
	return min(sum, limit)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func sortByScore(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Score > articles[j].Score
	})
}
