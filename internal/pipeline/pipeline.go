// Package pipeline sequences the analyze phase: load raw articles,
// safety-summary stage, safety filter, relevance stage, threshold
// filter and sort, then persist the terminal artifact with reconciled
// stats. Stages run strictly in order; items within a stage run under
// the shared concurrency cap.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"trendscan/internal/batch"
	"trendscan/internal/domain"
	"trendscan/internal/ports"
)

// Pipeline is the analyze-phase orchestrator.
type Pipeline struct {
	store  ports.ArtifactStore
	safety ports.SafetyAssessor
	scorer ports.RelevanceScorer
	cfg    domain.RunConfig
	logger *slog.Logger
}

// New builds an orchestrator with an explicit run configuration; there
// are no ambient globals.
func New(store ports.ArtifactStore, safety ports.SafetyAssessor, scorer ports.RelevanceScorer, cfg domain.RunConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		safety: safety,
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
	}
}

type indexedArticle struct {
	idx     int
	article domain.RawArticle
}

// Analyze runs the full scoring pipeline over a collector artifact.
// An empty artifact is a normal no-news outcome: it returns (nil, nil)
// and writes nothing. Only a failed load or a failed final persist is
// fatal; per-item stage failures are logged and absorbed into stats.
func (p *Pipeline) Analyze(ctx context.Context, inputPath string) (*domain.PipelineRun, error) {
	articles, err := p.store.LoadArticles(inputPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if len(articles) == 0 {
		p.logger.Warn("no articles in artifact, nothing to analyze", "path", inputPath)
		return nil, nil
	}
	p.logger.Info("loaded articles", "count", len(articles), "path", inputPath)

	indexed := make([]indexedArticle, len(articles))
	for i, a := range articles {
		indexed[i] = indexedArticle{idx: i, article: a}
	}

	stage1 := batch.RunAll(ctx, indexed, p.cfg.ConcurrencyLimit,
		func(ctx context.Context, it indexedArticle) (domain.SafetyAssessment, error) {
			return p.safety.Assess(ctx, it.idx, it.article)
		})

	safe := []domain.SafetyAssessment{}
	unsafe := []domain.SafetyAssessment{}
	stage1Success := 0
	for _, res := range stage1 {
		if !res.Ok() {
			p.logger.Warn("safety stage failed",
				"idx", res.Index, "title", articles[res.Index].Title, "error", res.Err)
			continue
		}
		stage1Success++
		if res.Value.IsSafe {
			safe = append(safe, res.Value)
		} else {
			unsafe = append(unsafe, res.Value)
		}
	}
	p.logger.Info("safety stage complete",
		"success", stage1Success, "total", len(articles),
		"safe", len(safe), "unsafe", len(unsafe))

	stage2 := batch.RunAll(ctx, safe, p.cfg.ConcurrencyLimit,
		func(ctx context.Context, item domain.SafetyAssessment) (domain.RelevanceAssessment, error) {
			return p.scorer.Score(ctx, item)
		})

	qualified := []domain.RelevanceAssessment{}
	filteredOut := []domain.RelevanceAssessment{}
	stage2Success := 0
	for _, res := range stage2 {
		if !res.Ok() {
			p.logger.Warn("relevance stage failed",
				"idx", safe[res.Index].Index, "title", safe[res.Index].Title, "error", res.Err)
			continue
		}
		stage2Success++
		if res.Value.Score >= p.cfg.ScoreThreshold {
			qualified = append(qualified, res.Value)
		} else {
			filteredOut = append(filteredOut, res.Value)
		}
	}

	// Descending by score; ties keep collection order.
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Score > qualified[j].Score
	})

	run := &domain.PipelineRun{
		RunDate: runDateOf(articles[0]),
		Config:  p.cfg,
		Stats: domain.RunStats{
			TotalInput:     len(articles),
			Stage1Success:  stage1Success,
			SafeCount:      len(safe),
			UnsafeCount:    len(unsafe),
			Stage2Success:  stage2Success,
			QualifiedCount: len(qualified),
			FilteredCount:  len(filteredOut),
		},
		Qualified:   qualified,
		FilteredOut: filteredOut,
		Unsafe:      unsafe,
	}

	p.logger.Info("score filter complete",
		"threshold", p.cfg.ScoreThreshold,
		"qualified", len(qualified), "filtered_out", len(filteredOut))

	path, err := p.store.SaveRun(run)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.logger.Info("pipeline run saved", "path", path,
		"summary", fmt.Sprintf("%d -> %d safe -> %d qualified",
			run.Stats.TotalInput, run.Stats.SafeCount, run.Stats.QualifiedCount))

	return run, nil
}

// runDateOf derives the run date (YYYY-MM-DD) from an article's feed
// timestamp, matching the artifact naming.
func runDateOf(a domain.RawArticle) string {
	day, _, _ := strings.Cut(a.Date, " ")
	return strings.ReplaceAll(day, "/", "-")
}
