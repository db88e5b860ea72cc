package news

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDedupThreshold is the similarity from which two titles are one story.
const DefaultDedupThreshold = 0.7

// WeightedTerm is one entry of a keyword tier.
type WeightedTerm struct {
	Term   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// SourcePriority ranks an outlet for duplicate tie-breaks. Match is a
// case-insensitive substring of the source id; the first match wins.
type SourcePriority struct {
	Match    string `yaml:"match"`
	Priority int    `yaml:"priority"`
}

// Rules holds every tunable list used by the scorer and the deduplicator.
// A Rules value is read-only once loaded.
type Rules struct {
	AcceptedSports    []string `yaml:"accepted_sports"`
	RejectedSports    []string `yaml:"rejected_sports"`
	ExceptionTerms    []string `yaml:"exception_terms"`
	Gossip            []string `yaml:"gossip"`
	Teams             []string `yaml:"teams"`
	MajorDrivers      []string `yaml:"major_drivers"`
	MajorConstructors []string `yaml:"major_constructors"`
	Endurance         []string `yaml:"endurance"`

	Technical []WeightedTerm `yaml:"technical"`
	Business  []WeightedTerm `yaml:"business"`
	General   []WeightedTerm `yaml:"general"`

	LengthThreshold int `yaml:"length_threshold"`

	SourcePriorities []SourcePriority `yaml:"source_priorities"`
	DefaultPriority  int              `yaml:"default_priority"`
	DedupThreshold   float64          `yaml:"dedup_threshold"`
}

// DefaultRules returns the deployed rule set.
func DefaultRules() Rules {
	return Rules{
		AcceptedSports: []string{
			"formula 1", "formula one", "f1", "f2", "f3", "formula e", "grand prix",
			"wec", "world endurance", "le mans", "hypercar", "imsa", "gt3", "lmdh", "lmh",
			"endurance", "fia",
		},
		RejectedSports: []string{
			"rally", "wrc", "dakar", "motogp", "moto2", "moto3", "motorcycle", "superbike",
			"nascar", "karting",
		},
		ExceptionTerms: []string{
			"partnership", "technical", "development", "engineering", "sponsor", "investment",
		},
		Gossip: []string{
			"gossip", "celebrity", "girlfriend", "boyfriend", "wedding", "dating", "lifestyle",
			"fashion", "auction", "net worth", "social media", "instagram", "tiktok",
			"you won't believe", "shocking", "clickbait",
		},
		Teams: []string{
			"ferrari", "mercedes", "red bull", "mclaren", "aston martin", "alpine", "williams",
			"haas", "sauber", "audi", "cadillac", "racing bulls", "toyota", "porsche", "bmw",
			"peugeot", "lamborghini", "jaguar", "nissan", "genesis",
		},
		MajorDrivers: []string{
			"verstappen", "hamilton", "leclerc", "norris", "piastri", "russell", "alonso",
			"sainz", "antonelli", "buemi", "kubica", "vergne",
		},
		MajorConstructors: []string{
			"ferrari", "mercedes", "red bull", "mclaren", "aston martin", "toyota", "porsche",
			"cadillac", "bmw", "audi",
		},
		Endurance: []string{
			"wec", "world endurance", "le mans", "hypercar", "lmdh", "lmh", "imsa", "gt3",
			"daytona 24", "spa 24", "sebring", "endurance",
		},
		Technical: []WeightedTerm{
			{"machine learning", 15}, {"artificial intelligence", 15}, {"algorithm", 12},
			{"aerodynamic", 12}, {"downforce", 12}, {"wind tunnel", 12}, {"cfd", 12},
			{"balance of performance", 12}, {"telemetry", 10}, {"data analysis", 10},
			{"analytics", 10}, {"simulation", 10}, {"power unit", 10}, {"energy recovery", 10},
			{"tyre degradation", 10}, {"tire degradation", 10}, {"engineering", 8},
			{"upgrade", 8}, {"pit stop", 8}, {"undercut", 8}, {"strategy", 6}, {"setup", 6},
			{"fuel", 6},
		},
		Business: []WeightedTerm{
			{"acquisition", 12}, {"budget cap", 12}, {"cost cap", 12}, {"concorde agreement", 12},
			{"partnership", 10}, {"investment", 10}, {"regulation", 10},
			{"technical directive", 10}, {"homologation", 10}, {"takeover", 10},
			{"sponsor", 8}, {"commercial", 8}, {"contract", 8}, {"team principal", 8},
			{"manufacturer", 8}, {"ownership", 8}, {"revenue", 8}, {"calendar", 6},
			{"entry list", 6}, {"broadcast", 6},
		},
		General: []WeightedTerm{
			{"signs", 5}, {"announce", 5}, {"pole position", 5}, {"qualifying", 4},
			{"podium", 4}, {"victory", 4}, {"wins", 4}, {"championship", 4}, {"penalty", 4},
			{"debut", 4}, {"race", 3}, {"driver", 3}, {"team", 3}, {"grid", 3}, {"season", 3},
			{"test", 3}, {"crash", 3},
		},
		LengthThreshold: 1500,
		SourcePriorities: []SourcePriority{
			{"f1_official", 10}, {"formulae_official", 10}, {"fia", 10},
			{"f1_technical", 9}, {"racecar", 9}, {"sportscar365", 9},
			{"autosport", 8}, {"motorsport", 8}, {"the_race", 8},
			{"racefans", 7},
		},
		DefaultPriority: 5,
		DedupThreshold:  DefaultDedupThreshold,
	}
}

// LoadRules reads a YAML rule file. Keys missing from the file keep their
// default value; present lists replace the default list entirely.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}

	rules = rules.normalized()
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks weights, priorities and the dedup threshold.
func (r Rules) Validate() error {
	var errs []error
	if len(r.AcceptedSports) == 0 {
		errs = append(errs, errors.New("accepted_sports must not be empty"))
	}
	for name, tier := range map[string][]WeightedTerm{
		"technical": r.Technical, "business": r.Business, "general": r.General,
	} {
		for _, wt := range tier {
			if strings.TrimSpace(wt.Term) == "" {
				errs = append(errs, fmt.Errorf("%s: empty term", name))
			}
			if wt.Weight <= 0 {
				errs = append(errs, fmt.Errorf("%s: weight of %q must be positive", name, wt.Term))
			}
		}
	}
	for _, sp := range r.SourcePriorities {
		if strings.TrimSpace(sp.Match) == "" {
			errs = append(errs, errors.New("source_priorities: empty match"))
		}
	}
	if r.DedupThreshold <= 0 || r.DedupThreshold > 1 {
		errs = append(errs, fmt.Errorf("dedup_threshold must be in (0,1], got %v", r.DedupThreshold))
	}
	if r.LengthThreshold < 0 {
		errs = append(errs, errors.New("length_threshold must not be negative"))
	}
	return errors.Join(errs...)
}

// normalized lowercases and trims every term so matching can stay a plain
// substring test on lowercased text.
func (r Rules) normalized() Rules {
	lower := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	lowerWeighted := func(in []WeightedTerm) []WeightedTerm {
		out := make([]WeightedTerm, 0, len(in))
		for _, wt := range in {
			out = append(out, WeightedTerm{Term: strings.ToLower(strings.TrimSpace(wt.Term)), Weight: wt.Weight})
		}
		return out
	}

	r.AcceptedSports = lower(r.AcceptedSports)
	r.RejectedSports = lower(r.RejectedSports)
	r.ExceptionTerms = lower(r.ExceptionTerms)
	r.Gossip = lower(r.Gossip)
	r.Teams = lower(r.Teams)
	r.MajorDrivers = lower(r.MajorDrivers)
	r.MajorConstructors = lower(r.MajorConstructors)
	r.Endurance = lower(r.Endurance)
	r.Technical = lowerWeighted(r.Technical)
	r.Business = lowerWeighted(r.Business)
	r.General = lowerWeighted(r.General)

	priorities := make([]SourcePriority, 0, len(r.SourcePriorities))
	for _, sp := range r.SourcePriorities {
		priorities = append(priorities, SourcePriority{Match: strings.ToLower(strings.TrimSpace(sp.Match)), Priority: sp.Priority})
	}
	r.SourcePriorities = priorities
	return r
}

// PriorityOf returns the tie-break priority of a source id.
func (r Rules) PriorityOf(source string) int {
	s := strings.ToLower(source)
	for _, sp := range r.SourcePriorities {
		if strings.Contains(s, sp.Match) {
			return sp.Priority
		}
	}
	return r.DefaultPriority
}
