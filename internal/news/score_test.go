package news

import (
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreTelemetryStory(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "F1 telemetry data analysis shows Ferrari strategy error"
	body := "Detailed analysis of telemetry data from the race reveals that Ferrari made a strategic error " +
		"with their pit stop timing. Machine learning models predicted the optimal window..."

	b := s.Explain(body, title, "F1_Technical")
	require.Equal(t, Accepted, b.Verdict)
	assert.Equal(t, 49, b.Technical) // telemetry, data analysis, machine learning, strategy, pit stop
	assert.Equal(t, 0, b.Business)
	assert.Equal(t, 3, b.General)
	assert.Equal(t, 3, b.Constructor)
	assert.Equal(t, 10, b.Title)
	assert.Equal(t, 0, b.Endurance)
	assert.Equal(t, 65, b.Total)

	got := s.Score(body, title, "F1_Technical")
	assert.Equal(t, 65, got)
	assert.True(t, got >= 40 && got <= 70)
}

func TestScoreFilters(t *testing.T) {
	s := NewScorer(DefaultRules())

	tests := []struct {
		name    string
		title   string
		body    string
		verdict Verdict
	}{
		{
			name:    "clickbait",
			title:   "You won't believe what this driver said!",
			body:    "Shocking comments from driver about team. Social media is going crazy!",
			verdict: Gossip,
		},
		{
			name:    "gossip beats strong content",
			title:   "Ferrari F1 aerodynamic upgrade and the team principal's wedding",
			body:    "Wind tunnel data and CFD results.",
			verdict: Gossip,
		},
		{
			name:    "rejected sport",
			title:   "WRC Rally Finland: Rovanpera wins",
			body:    "A dominant drive through the forests.",
			verdict: RejectedSport,
		},
		{
			name:    "rejected sport with accepted term but no exception",
			title:   "MotoGP and F1 share the weekend",
			body:    "Both paddocks were busy on Sunday.",
			verdict: RejectedSport,
		},
		{
			name:    "no accepted sport and no team",
			title:   "Hamilton wins dramatic race",
			body:    "Lewis Hamilton won today in a dramatic finish. The crowd was excited.",
			verdict: OffTopic,
		},
		{
			name:    "empty input",
			verdict: OffTopic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := s.Explain(tt.body, tt.title, "any")
			assert.Equal(t, tt.verdict, b.Verdict)
			assert.Equal(t, 0, b.Total)
			assert.Equal(t, 0, s.Score(tt.body, tt.title, "any"))
		})
	}
}

func TestScoreRejectedSportException(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "Rally legend joins Formula E team in technical partnership"
	body := "The agreement covers simulation work for next season."

	b := s.Explain(body, title, "")
	require.Equal(t, Accepted, b.Verdict)
	assert.Equal(t, 10, b.Title)
	assert.Positive(t, b.Total)
}

func TestScoreGossipBeatsRejectedSportException(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "Rally legend joins Formula E team in technical partnership"
	body := "Shocking photos from the launch party went around social media."

	b := s.Explain(body, title, "")
	assert.Equal(t, Gossip, b.Verdict)
	assert.Equal(t, 0, b.Total)
}

func TestScoreAlwaysInRange(t *testing.T) {
	s := NewScorer(DefaultRules())
	inRange := func(title, body string) bool {
		got := s.Score(body, title, "")
		return got >= 0 && got <= 100
	}
	require.NoError(t, quick.Check(inRange, &quick.Config{MaxCount: 500}))

	// Random strings rarely hit a term, so also build texts from the rule lists.
	r := DefaultRules()
	var vocab []string
	vocab = append(vocab, r.AcceptedSports...)
	vocab = append(vocab, r.Teams...)
	vocab = append(vocab, r.MajorDrivers...)
	vocab = append(vocab, r.Endurance...)
	vocab = append(vocab, r.RejectedSports...)
	vocab = append(vocab, r.ExceptionTerms...)
	for _, tier := range [][]WeightedTerm{r.Technical, r.Business, r.General} {
		for _, wt := range tier {
			vocab = append(vocab, wt.Term)
		}
	}
	fromTerms := func(titlePicks, bodyPicks []uint16, padding uint16) bool {
		pick := func(idx []uint16) string {
			words := make([]string, 0, len(idx))
			for _, i := range idx {
				words = append(words, vocab[int(i)%len(vocab)])
			}
			return strings.Join(words, " ")
		}
		body := pick(bodyPicks) + strings.Repeat("x", int(padding%3000))
		return inRange(pick(titlePicks), body)
	}
	require.NoError(t, quick.Check(fromTerms, &quick.Config{MaxCount: 500}))
}

func TestScoreEnduranceBonus(t *testing.T) {
	s := NewScorer(DefaultRules())
	b := s.Explain("Toyota will field two cars.", "Toyota confirms Le Mans Hypercar line-up", "")

	require.Equal(t, Accepted, b.Verdict)
	assert.Equal(t, 30, b.Endurance)
	assert.Equal(t, 3, b.Constructor)
	assert.Equal(t, 10, b.Title)
	assert.Equal(t, 43, b.Total)
}

func TestScoreCaps(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "WEC Hypercar: Verstappen and Ferrari sign partnership"
	body := "machine learning artificial intelligence algorithm aerodynamic downforce wind tunnel " +
		"acquisition budget cap cost cap concorde agreement " + strings.Repeat("x", 1600)

	b := s.Explain(body, title, "")
	require.Equal(t, Accepted, b.Verdict)
	assert.Equal(t, 60, b.Technical)
	assert.Equal(t, 40, b.Business)
	assert.Equal(t, 5, b.Driver)
	assert.Equal(t, 5, b.Length)
	assert.Equal(t, 100, b.Total)
}

func TestScoreLengthThreshold(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "Ferrari update"

	short := s.Explain(strings.Repeat("a", 1500), title, "")
	long := s.Explain(strings.Repeat("a", 1501), title, "")
	assert.Equal(t, 0, short.Length)
	assert.Equal(t, 5, long.Length)
	assert.Equal(t, short.Total+5, long.Total)
}

func TestScoreIgnoresSource(t *testing.T) {
	s := NewScorer(DefaultRules())
	title := "Cadillac launches stealthy first F1 livery for Barcelona testing"
	assert.Equal(t, s.Score("", title, "F1_Official"), s.Score("", title, "random blog"))
}

func TestScoreCaseInsensitive(t *testing.T) {
	s := NewScorer(DefaultRules())
	lower := s.Score("", "ferrari tests new f1 power unit", "")
	upper := s.Score("", "FERRARI TESTS NEW F1 POWER UNIT", "")
	assert.Equal(t, lower, upper)
	assert.Positive(t, lower)
}

func TestScoreAll(t *testing.T) {
	s := NewScorer(DefaultRules())
	in := []Article{
		{Title: "Hamilton wins dramatic race", Source: "a"},
		{Title: "Toyota confirms Le Mans Hypercar line-up", Excerpt: "Toyota will field two cars.", Source: "b"},
		{Title: "Ferrari F1 update", Source: "c"},
	}

	out := s.ScoreAll(in)
	require.Len(t, out, 3)
	for _, a := range out {
		assert.True(t, a.Scored)
		assert.GreaterOrEqual(t, a.Score, 0)
		assert.LessOrEqual(t, a.Score, 100)
	}
	assert.Equal(t, "b", out[0].Source)
	assert.Equal(t, 43, out[0].Score)
	assert.Equal(t, "a", out[2].Source)
	assert.Equal(t, 0, out[2].Score)

	// input untouched
	assert.False(t, in[0].Scored)
}

func TestScoreCustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.AcceptedSports = []string{"Indycar"}
	rules.Teams = nil
	s := NewScorer(rules)

	assert.Equal(t, 0, s.Score("", "Ferrari F1 update", ""))
	assert.Equal(t, 13, s.Score("", "IndyCar season preview", "")) // title bonus plus "season"
}
