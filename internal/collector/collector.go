// Package collector implements the collect-day-D phase: bootstrap a
// scraping session, page through the feed, fetch every article body,
// and persist the dated raw artifact.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendscan/internal/domain"
	"trendscan/internal/feed"
	"trendscan/internal/ports"
)

// Collector composes session, paginator, and body fetcher. All of its
// network work is serial: one request in flight, paced by the upstream
// feed itself rather than a concurrency cap.
type Collector struct {
	session *feed.Session
	stubs   ports.StubSource
	bodies  ports.BodyFetcher
	store   ports.ArtifactStore
	logger  *slog.Logger
}

// New wires the collection dependencies.
func New(session *feed.Session, stubs ports.StubSource, bodies ports.BodyFetcher, store ports.ArtifactStore, logger *slog.Logger) *Collector {
	return &Collector{
		session: session,
		stubs:   stubs,
		bodies:  bodies,
		store:   store,
		logger:  logger,
	}
}

// Run collects all articles for the given day, optionally bounded below
// by a stop time. The resulting list is persisted before returning.
// Body-fetch failures are tolerated (empty story); session bootstrap or
// pagination failures abandon the day.
func (c *Collector) Run(ctx context.Context, day time.Time, stop *time.Time) ([]domain.RawArticle, error) {
	if err := c.session.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	articles, err := c.stubs.Collect(ctx, day, stop)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	for i := range articles {
		c.logger.Info("fetching story", "n", i+1, "total", len(articles), "href", articles[i].Href)
		articles[i].Story = c.bodies.FetchBody(ctx, articles[i].Href)
	}

	path, err := c.store.SaveArticles(day, articles)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	withStory := 0
	for _, a := range articles {
		if a.Story != "" {
			withStory++
		}
	}
	c.logger.Info("collection saved",
		"articles", len(articles), "with_story", withStory, "path", path)

	return articles, nil
}
