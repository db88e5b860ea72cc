package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NicolasGut/motorsport-digest/internal/news"
	"github.com/NicolasGut/motorsport-digest/internal/retry"
)

const (
	apiBase        = "https://api.telegram.org"
	maxMessageLen  = 4000
	defaultTimeout = 30 * time.Second
)

// Notifier posts digest announcements to a Telegram chat or channel.
type Notifier struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

func NewNotifier(token, chatID string, rc retry.RetryConfig, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		token:   token,
		chatID:  chatID,
		baseURL: apiBase,
		http:    &http.Client{Timeout: defaultTimeout},
		retry:   rc,
		log:     log,
	}
}

// SendMessage sends an HTML message, retrying transient failures. Client
// errors other than 429 are not retried.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	err := retry.WithRetry(ctx, n.retry, func() error {
		attempt++
		err := n.sendMessageOnce(ctx, text)
		if err != nil {
			n.log.Warn("error sending to Telegram", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	n.log.Info("message sent to Telegram", "attempt", attempt, "chars", len(text))
	return nil
}

func (n *Notifier) sendMessageOnce(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	default:
		return retry.Permanent(fmt.Errorf("telegram API error: status %d", resp.StatusCode))
	}
}

// FormatDigest lists the top headlines (English title when available) and
// links to the published page. Lines are dropped from the end to stay under
// the Telegram message limit.
func FormatDigest(articles []news.Article, digestURL string, top int, date time.Time) string {
	header := fmt.Sprintf("🏁 <b>Motorsport digest</b> %s\n\n", date.Format("2006-01-02"))
	footer := ""
	if digestURL != "" {
		footer = fmt.Sprintf("\n📖 <a href=\"%s\">Full digest (FR/EN)</a>", html.EscapeString(digestURL))
	}

	var lines []string
	for i, a := range articles {
		if top > 0 && i >= top {
			break
		}
		title := a.TitleEN
		if title == "" {
			title = a.Title
		}
		lines = append(lines, fmt.Sprintf("%d. <a href=\"%s\">%s</a> <i>(%s, %d)</i>\n",
			i+1, html.EscapeString(a.Link), html.EscapeString(title), html.EscapeString(a.Source), a.Score))
	}

	for len(lines) > 0 && len(header)+len(footer)+totalLen(lines) > maxMessageLen {
		lines = lines[:len(lines)-1]
	}
	return header + strings.Join(lines, "") + footer
}

func totalLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	return n
}
