package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendscan/internal/domain"
	"trendscan/internal/ports"
)

// Categories structurally irrelevant to consumer marketing. Stubs with
// these tags never enter the pipeline.
var DefaultExcludedTags = []string{
	"政治", "社會", "房產雲", "大陸", "健康", "軍武",
	"ESG", "新奇", "網搜", "論壇", "法律", "公益",
}

// Pages with fewer items than this signal the end of the feed.
const defaultPageSize = 10

// Consecutive pages yielding zero kept stubs before giving up.
const maxZeroYieldPages = 3

// Paginator walks the rolling feed endpoint page by page and extracts
// article stubs for a single calendar day.
type Paginator struct {
	session  *Session
	rollURL  string
	pageSize int
	excluded map[string]struct{}
	logger   *slog.Logger
}

var _ ports.StubSource = (*Paginator)(nil)

// NewPaginator wires a bootstrapped session against the feed endpoint.
// An empty excludedTags applies DefaultExcludedTags.
func NewPaginator(session *Session, rollURL string, excludedTags []string, logger *slog.Logger) *Paginator {
	if len(excludedTags) == 0 {
		excludedTags = DefaultExcludedTags
	}
	excluded := make(map[string]struct{}, len(excludedTags))
	for _, tag := range excludedTags {
		excluded[tag] = struct{}{}
	}

	return &Paginator{
		session:  session,
		rollURL:  rollURL,
		pageSize: defaultPageSize,
		excluded: excluded,
		logger:   logger,
	}
}

// Collect requests successive feed pages until a stop condition fires:
// empty page, page shorter than the nominal page size, three consecutive
// zero-yield pages, or a stub older than the optional stop time. A page
// request failure is fatal for the whole day.
func (p *Paginator) Collect(ctx context.Context, day time.Time, stop *time.Time) ([]domain.RawArticle, error) {
	dayPrefix := day.Format("2006/01/02")

	var cutoff time.Time
	hasCutoff := stop != nil
	if hasCutoff {
		cutoff = time.Date(day.Year(), day.Month(), day.Day(),
			stop.Hour(), stop.Minute(), 0, 0, time.UTC)
		p.logger.Info("collecting feed", "day", dayPrefix, "cutoff", cutoff.Format("15:04"))
	} else {
		p.logger.Info("collecting feed", "day", dayPrefix)
	}

	var stubs []domain.RawArticle
	offset := 1
	zeroPages := 0

	for {
		fragment, err := p.fetchPage(ctx, day, offset)
		if err != nil {
			return nil, fmt.Errorf("feed page %d: %w", offset, err)
		}

		if strings.TrimSpace(fragment) == "" {
			p.logger.Info("empty page, done", "offset", offset)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			return nil, fmt.Errorf("feed page %d: parse fragment: %w", offset, err)
		}

		items := doc.Find("h3")
		if items.Length() == 0 {
			p.logger.Info("no items on page, done", "offset", offset)
			break
		}

		kept, reachedCutoff := p.extractStubs(items, dayPrefix, cutoff, hasCutoff, &stubs)
		p.logger.Debug("page processed", "offset", offset, "kept", kept, "total", len(stubs))

		if reachedCutoff {
			p.logger.Info("reached stop time, done", "offset", offset)
			break
		}

		if kept == 0 {
			zeroPages++
			if zeroPages >= maxZeroYieldPages {
				p.logger.Info("consecutive zero-yield pages, done", "offset", offset)
				break
			}
		} else {
			zeroPages = 0
		}

		if items.Length() < p.pageSize {
			p.logger.Info("short page, end of feed", "offset", offset, "items", items.Length())
			break
		}

		offset++
	}

	p.logger.Info("feed collection finished", "stubs", len(stubs))
	return stubs, nil
}

// fetchPage posts the upstream's paging form and returns the HTML fragment.
func (p *Paginator) fetchPage(ctx context.Context, day time.Time, offset int) (string, error) {
	form := url.Values{}
	form.Set("offset", strconv.Itoa(offset))
	form.Set("tPage", "3")
	form.Set("tFile", day.Format("20060102")+".xml")
	form.Set("tOt", "0")
	form.Set("tSi", "0")
	form.Set("tAr", "0")

	resp, err := p.session.PostForm(ctx, p.rollURL, form)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	return string(body), nil
}

// extractStubs appends the page's qualifying stubs and reports how many
// were kept, plus whether a stub older than the cutoff was encountered.
func (p *Paginator) extractStubs(items *goquery.Selection, dayPrefix string, cutoff time.Time, hasCutoff bool, stubs *[]domain.RawArticle) (int, bool) {
	kept := 0
	reachedCutoff := false

	items.EachWithBreak(func(_ int, h3 *goquery.Selection) bool {
		dateSpan := h3.Find("span.date").First()
		link := h3.Find("a").First()
		if dateSpan.Length() == 0 || link.Length() == 0 {
			return true
		}

		dateText := strings.TrimSpace(dateSpan.Text())
		tag := strings.TrimSpace(h3.Find("em").First().Text())
		href, _ := link.Attr("href")
		title := normalizeFullWidth(strings.TrimSpace(link.Text()))

		if _, skip := p.excluded[tag]; skip {
			return true
		}

		published, err := time.Parse(domain.FeedTimeLayout, dateText)
		if err != nil {
			// Malformed timestamp: drop the stub, keep paging.
			return true
		}

		if !strings.HasPrefix(dateText, dayPrefix) {
			return true
		}

		if hasCutoff && published.Before(cutoff) {
			reachedCutoff = true
			return false
		}

		kept++
		*stubs = append(*stubs, domain.RawArticle{
			Date:  dateText,
			Tag:   tag,
			Href:  href,
			Title: title,
		})
		return true
	})

	return kept, reachedCutoff
}

// normalizeFullWidth collapses ideographic spaces to plain ASCII spaces.
func normalizeFullWidth(s string) string {
	return strings.ReplaceAll(s, "　", " ")
}
