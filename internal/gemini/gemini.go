package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/NicolasGut/motorsport-digest/internal/ratelimit"
	"github.com/NicolasGut/motorsport-digest/internal/retry"
)

const (
	DefaultModel = "gemini-1.5-flash"

	maxPromptText = 4000
	maxOutputTok  = 400
)

var (
	// ErrEmptyResponse means the model answered with no text at all.
	ErrEmptyResponse = errors.New("no response from Gemini")
	// ErrIncompleteResponse means one of the two summaries could not be recovered.
	ErrIncompleteResponse = errors.New("could not parse Gemini response")
)

// Summary is a bilingual title and summary pair.
type Summary struct {
	TitleFR   string
	SummaryFR string
	TitleEN   string
	SummaryEN string
}

type generateFunc func(ctx context.Context, prompt string) (string, error)

type Client struct {
	client   *genai.Client
	generate generateFunc
	limiter  *ratelimit.AIRateLimiter
	retry    retry.RetryConfig
	log      *slog.Logger
}

// NewClient connects to the Gemini API. limiter may be nil (no budget).
func NewClient(ctx context.Context, apiKey, model string, limiter *ratelimit.AIRateLimiter, rc retry.RetryConfig, log *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0.7)
	m.SetMaxOutputTokens(maxOutputTok)

	c := newClient(func(ctx context.Context, prompt string) (string, error) {
		resp, err := m.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		return responseText(resp), nil
	}, limiter, rc, log)
	c.client = client
	return c, nil
}

func newClient(gen generateFunc, limiter *ratelimit.AIRateLimiter, rc retry.RetryConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{generate: gen, limiter: limiter, retry: rc, log: log}
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// Summarize asks for French and English titles and summaries in one call.
// It spends one unit of the Gemini budget when a limiter is set.
func (c *Client) Summarize(ctx context.Context, title, text, link string) (*Summary, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, ratelimit.Gemini); err != nil {
			return nil, err
		}
	}

	prompt := BuildPrompt(title, text, link)

	var raw string
	err := retry.WithRetry(ctx, c.retry, func() error {
		out, err := c.generate(ctx, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptyResponse
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarize %q: %w", title, err)
	}

	s := parseSummaryResponse(raw, title)
	if s.SummaryFR == "" || s.SummaryEN == "" {
		c.log.Debug("unparsable Gemini response", "title", title, "raw", raw)
		return nil, fmt.Errorf("summarize %q: %w (fr=%t en=%t)", title, ErrIncompleteResponse, s.SummaryFR != "", s.SummaryEN != "")
	}
	return s, nil
}

// BuildPrompt renders the bilingual summary prompt. Article text is cut to
// 4000 characters.
func BuildPrompt(title, text, link string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if utf8.RuneCountInString(text) > maxPromptText {
		text = string([]rune(text)[:maxPromptText]) + "..."
	}

	return fmt.Sprintf(`Summarize this motorsport article in BOTH French and English, including TRANSLATED TITLES.

Original Title: %s
URL: %s

Article:
%s

Instructions:
- Provide TWO complete entries: one in French, one in English
- TRANSLATE the title into both languages (keep meaning, adapt idioms)
- Each summary: 2-3 sentences, 100-150 words
- Focus on technical, data, business, or strategic insights
- Professional data journalist tone
- No sensationalism

Format your response EXACTLY like this:

FRENCH TITLE:
[Translated title in French]

FRENCH SUMMARY:
[Your French summary here]

ENGLISH TITLE:
[Translated title in English]

ENGLISH SUMMARY:
[Your English summary here]`, title, link, text)
}

var (
	sectionLabel = regexp.MustCompile(`(?i)^[#*\s]*(french|english)\s+(title|summary)\s*\**\s*:\s*\**\s*`)
	legacyLabel  = regexp.MustCompile(`(?i)^[#*\s]*(french|english)\s*\**\s*:\s*\**\s*`)
)

// parseSummaryResponse reads the labelled sections. Missing titles fall back
// to the original title. When no section label is present it tries the older
// FRENCH:/ENGLISH: format, then splits the lines in two halves.
func parseSummaryResponse(response, originalTitle string) *Summary {
	lines := strings.Split(strings.ReplaceAll(response, "\r", ""), "\n")

	sections := scanSections(lines, sectionLabel, func(m []string) string {
		return strings.ToLower(m[1] + " " + m[2])
	})
	s := &Summary{
		TitleFR:   sections["french title"],
		SummaryFR: sections["french summary"],
		TitleEN:   sections["english title"],
		SummaryEN: sections["english summary"],
	}

	if len(sections) == 0 {
		legacy := scanSections(lines, legacyLabel, func(m []string) string {
			return strings.ToLower(m[1])
		})
		s.SummaryFR, s.SummaryEN = legacy["french"], legacy["english"]

		if len(legacy) == 0 {
			var text []string
			for _, l := range lines {
				if l = strings.TrimSpace(l); l != "" {
					text = append(text, l)
				}
			}
			half := len(text) / 2
			s.SummaryFR = strings.Join(text[:half], " ")
			s.SummaryEN = strings.Join(text[half:], " ")
		}
	}

	if s.TitleFR == "" {
		s.TitleFR = originalTitle
	}
	if s.TitleEN == "" {
		s.TitleEN = originalTitle
	}
	return s
}

// scanSections groups lines under the last label seen. Text after a label on
// the same line belongs to that section.
func scanSections(lines []string, label *regexp.Regexp, key func([]string) string) map[string]string {
	sections := map[string]string{}
	current := ""
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := label.FindStringSubmatch(line); m != nil {
			current = key(m)
			line = strings.TrimSpace(line[len(m[0]):])
			if _, ok := sections[current]; !ok {
				sections[current] = ""
			}
		}
		if current == "" || line == "" {
			continue
		}
		if sections[current] != "" {
			sections[current] += " "
		}
		sections[current] += line
	}
	for k, v := range sections {
		sections[k] = strings.Trim(v, "[] ")
	}
	return sections
}

// CostEstimate is the expected API spend for a batch of summaries.
type CostEstimate struct {
	Articles     int
	InputTokens  int
	OutputTokens int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
}

// EstimateCost assumes 4 characters per token, a 150 character summary,
// $3 per million input tokens and $15 per million output tokens.
// avgLen 0 means 2000 characters.
func EstimateCost(articles, avgLen int) CostEstimate {
	if avgLen <= 0 {
		avgLen = 2000
	}
	in := float64(articles) * float64(avgLen) / 4
	out := float64(articles) * 150.0 / 4

	inCost := in / 1_000_000 * 3
	outCost := out / 1_000_000 * 15
	return CostEstimate{
		Articles:     articles,
		InputTokens:  int(in),
		OutputTokens: int(out),
		InputCost:    inCost,
		OutputCost:   outCost,
		TotalCost:    inCost + outCost,
	}
}
