package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendscan/internal/domain"
	"trendscan/internal/ports"
)

// Telegram publishes the daily qualified-article digest to a chat.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Telegram)(nil)

// NewTelegram registers bot token and chat identifier.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest posts a Markdown message to Telegram.
func (t *Telegram) PublishDigest(ctx context.Context, digest string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", digest)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// BuildDigest renders a run summary with the top qualified articles.
func BuildDigest(run *domain.PipelineRun, maxItems int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Trend scan %s*\n", run.RunDate)
	fmt.Fprintf(&b, "%d collected, %d safe, %d qualified (threshold %.2f)\n\n",
		run.Stats.TotalInput, run.Stats.SafeCount, run.Stats.QualifiedCount,
		run.Config.ScoreThreshold)

	for i, item := range run.Qualified {
		if maxItems > 0 && i >= maxItems {
			break
		}
		fmt.Fprintf(&b, "%d. [%.2f] %s\n%s\n", i+1, item.Score, item.Title, item.Href)
	}

	if run.Stats.QualifiedCount == 0 {
		b.WriteString("No qualified articles today.\n")
	}

	return b.String()
}
