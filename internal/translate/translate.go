package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/NicolasGut/motorsport-digest/internal/ratelimit"
)

const (
	googleEndpoint = "https://translate.googleapis.com/translate_a/single"
	maxTextLen     = 4000
)

type Options struct {
	Timeout        time.Duration
	OpenAIKey      string // empty disables the OpenAI fallback
	OpenAIBaseURL  string
	GoogleEndpoint string
}

// Translator translates short texts (titles, fallback summaries) through the
// free Google endpoint, then OpenAI when a key is configured.
type Translator struct {
	http     *http.Client
	endpoint string
	openai   *openai.Client
	limiter  *ratelimit.AIRateLimiter
	log      *slog.Logger
}

func New(opts Options, limiter *ratelimit.AIRateLimiter, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	t := &Translator{
		http:     &http.Client{Timeout: opts.Timeout},
		endpoint: opts.GoogleEndpoint,
		limiter:  limiter,
		log:      log,
	}
	if t.endpoint == "" {
		t.endpoint = googleEndpoint
	}
	if opts.OpenAIKey != "" {
		cfg := openai.DefaultConfig(opts.OpenAIKey)
		if opts.OpenAIBaseURL != "" {
			cfg.BaseURL = opts.OpenAIBaseURL
		}
		t.openai = openai.NewClientWithConfig(cfg)
	}
	return t
}

// Translate translates text with best available service. When every service
// fails the original text is returned.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" || from == to {
		return text, nil
	}

	originalText := text
	text = cleanTextForTranslation(text)
	if utf8.RuneCountInString(text) > maxTextLen {
		text = string([]rune(text)[:maxTextLen]) + "..."
	}

	result, err := t.translateWithGoogle(ctx, text, from, to)
	if err == nil && result != "" && result != text {
		t.log.Debug("google translate ok", "from", from, "to", to)
		return result, nil
	}
	t.log.Warn("google translate failed", "from", from, "to", to, "error", err)

	if t.openai != nil {
		result, err := t.translateWithOpenAI(ctx, text, from, to)
		if err == nil && result != "" && result != text {
			t.log.Debug("openai translate ok", "from", from, "to", to)
			return result, nil
		}
		t.log.Warn("openai translate failed", "from", from, "to", to, "error", err)
	}

	if ctx.Err() != nil {
		return originalText, ctx.Err()
	}
	t.log.Warn("all translate services failed, using original", "from", from, "to", to)
	return originalText, nil
}

// Bilingual returns text in French and English; the source language is detected.
func (t *Translator) Bilingual(ctx context.Context, text string) (fr, en string, err error) {
	if fr, err = t.Translate(ctx, text, "auto", "fr"); err != nil {
		return text, text, err
	}
	if en, err = t.Translate(ctx, text, "auto", "en"); err != nil {
		return fr, text, err
	}
	return fr, en, nil
}

func (t *Translator) translateWithGoogle(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	translation, err := parseGoogleResponse(body)
	if err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	return translation, nil
}

// parseGoogleResponse joins the translated segments of the nested array
// answer: [[["segment","source",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	translations, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, translation := range translations {
		if parts, ok := translation.([]interface{}); ok && len(parts) > 0 {
			if s, ok := parts[0].(string); ok {
				result.WriteString(s)
			}
		}
	}
	return result.String(), nil
}

var languageNames = map[string]string{
	"fr": "French",
	"en": "English",
	"de": "German",
	"it": "Italian",
	"es": "Spanish",
	"nl": "Dutch",
	"ja": "Japanese",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "the original language"
}

func (t *Translator) translateWithOpenAI(ctx context.Context, text, from, to string) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Acquire(ctx, ratelimit.Translate); err != nil {
			return "", err
		}
	}

	prompt := fmt.Sprintf(`Translate the following motorsport news text from %s to %s.
Keep team, driver, series and car names unchanged.
Translate only the text itself, without additional comments.

Text to translate:
%s`, languageName(from), languageName(to), text)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := t.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 1000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return SanitizeAIText(resp.Choices[0].Message.Content), nil
}

// cleanTextForTranslation drops blank and tiny lines and joins the rest.
func cleanTextForTranslation(text string) string {
	var cleanLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) > 5 {
			cleanLines = append(cleanLines, line)
		}
	}
	if len(cleanLines) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(cleanLines, " ")
}

var (
	inlineDisclaimer = regexp.MustCompile(`(?i)[(\[]\s*(?:note|disclaimer|translator'?s note)\b[^)\]]*[)\]]`)
	lineDisclaimer   = regexp.MustCompile(`(?i)^(?:note|disclaimer|translator'?s note)\s*:`)
)

// SanitizeAIText removes the machine translation disclaimers models like to
// add, both inline "(Note: ...)" / "[Note: ...]" and whole "Note: ..." lines.
func SanitizeAIText(s string) string {
	s = inlineDisclaimer.ReplaceAllString(s, "")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || lineDisclaimer.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
