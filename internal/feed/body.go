package feed

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trendscan/internal/ports"
)

// StoryFetcher extracts the main content container from article pages.
type StoryFetcher struct {
	session *Session
	logger  *slog.Logger
}

var _ ports.BodyFetcher = (*StoryFetcher)(nil)

// NewStoryFetcher reuses the collection session for article pages.
func NewStoryFetcher(session *Session, logger *slog.Logger) *StoryFetcher {
	return &StoryFetcher{session: session, logger: logger}
}

// FetchBody returns the concatenated paragraph text of the article's
// story container. Any failure yields an empty string with a warning;
// an empty body is a valid outcome, not an error.
func (f *StoryFetcher) FetchBody(ctx context.Context, href string) string {
	resp, err := f.session.Get(ctx, href)
	if err != nil {
		f.logger.Warn("fetch story failed", "href", href, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("fetch story failed", "href", href, "status", resp.Status)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		f.logger.Warn("parse story failed", "href", href, "error", err)
		return ""
	}

	story := doc.Find("div.story").First()
	if story.Length() == 0 {
		return ""
	}

	var paragraphs []string
	story.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	text := strings.Join(paragraphs, "\n")
	if len(paragraphs) == 0 {
		text = strings.TrimSpace(story.Text())
	}

	text = normalizeFullWidth(text)
	text = strings.ReplaceAll(text, "\r", "")
	return strings.ReplaceAll(text, "\n", "")
}
