package ports

import (
	"context"
	"time"

	"trendscan/internal/domain"
)

// StubSource pages through the upstream rolling feed for one calendar day.
// stop, when non-nil, is a time-of-day lower bound: stubs older than it
// are excluded and end the pagination.
type StubSource interface {
	Collect(ctx context.Context, day time.Time, stop *time.Time) ([]domain.RawArticle, error)
}

// BodyFetcher retrieves the full article text for a stub. It never fails;
// an empty string means the body was unavailable.
type BodyFetcher interface {
	FetchBody(ctx context.Context, href string) string
}

// SafetyAssessor is the per-article safety-summary stage (Agent 1).
type SafetyAssessor interface {
	Assess(ctx context.Context, idx int, article domain.RawArticle) (domain.SafetyAssessment, error)
}

// RelevanceScorer is the per-article product-fit stage (Agent 2).
// It is only invoked for safety-cleared articles.
type RelevanceScorer interface {
	Score(ctx context.Context, item domain.SafetyAssessment) (domain.RelevanceAssessment, error)
}

// ArtifactStore persists and loads the dated pipeline artifacts.
type ArtifactStore interface {
	SaveArticles(day time.Time, articles []domain.RawArticle) (string, error)
	LoadArticles(path string) ([]domain.RawArticle, error)
	ArticlesPath(day time.Time) string
	SaveRun(run *domain.PipelineRun) (string, error)
}

// RunRecorder keeps a history of pipeline runs for audit.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *domain.PipelineRun) error
}

// Notifier publishes a run digest to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when the daily pipeline executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
