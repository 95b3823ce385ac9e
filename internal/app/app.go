// Package app wires configuration into the two pipeline phases and
// exposes the trigger contract consumed by the CLI and the scheduler:
// collect day D, then analyze the dated artifact when anything was
// collected.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendscan/internal/agents"
	"trendscan/internal/collector"
	"trendscan/internal/config"
	"trendscan/internal/domain"
	"trendscan/internal/feed"
	"trendscan/internal/llm"
	"trendscan/internal/notify"
	"trendscan/internal/pipeline"
	"trendscan/internal/ports"
	"trendscan/internal/scheduler"
	"trendscan/internal/storage"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.FileStore
	history  *storage.RunHistory
	notifier ports.Notifier
}

// New builds a runnable application instance. The run-history database
// and the Telegram notifier are optional: both stay nil when not
// configured and every phase works without them.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	a := &Application{
		cfg:    cfg,
		logger: logger,
		store:  storage.NewFileStore(cfg.Collector.DataDir, cfg.Collector.Source),
	}

	if cfg.Database.DSN != "" {
		history, err := storage.OpenRunHistory(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.history = history
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		a.notifier = notify.NewTelegram(tg.BotToken, tg.ChatID)
	}

	return a, nil
}

// Close releases long-lived resources.
func (a *Application) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// Collect runs the collect-day-D phase and returns how many articles
// were gathered.
func (a *Application) Collect(ctx context.Context, day time.Time, stop *time.Time) (int, error) {
	session, err := feed.NewSession(a.cfg.Feed.ListURL, a.cfg.Feed.RequestTimeout(),
		a.logger.With("component", "session"))
	if err != nil {
		return 0, fmt.Errorf("collect: %w", err)
	}

	paginator := feed.NewPaginator(session, a.cfg.Feed.RollURL, a.cfg.Feed.ExcludedTags,
		a.logger.With("component", "paginator"))
	bodies := feed.NewStoryFetcher(session, a.logger.With("component", "story"))

	c := collector.New(session, paginator, bodies, a.store,
		a.logger.With("component", "collector"))

	articles, err := c.Run(ctx, day, stop)
	if err != nil {
		return 0, err
	}
	return len(articles), nil
}

// Analyze runs the scoring pipeline over a collector artifact. A nil
// run with nil error is the no-news outcome.
func (a *Application) Analyze(ctx context.Context, inputPath string) (*domain.PipelineRun, error) {
	if a.cfg.Analyzer.APIKey == "" {
		return nil, fmt.Errorf("analyze: %s is required", "GEMINI_API_KEY")
	}

	gemini, err := llm.NewGemini(ctx, a.cfg.Analyzer.APIKey, a.cfg.Analyzer.Model)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	defer gemini.Close()

	callTimeout := a.cfg.Analyzer.CallTimeout()
	safety := agents.NewSafetyAgent(gemini, callTimeout,
		a.logger.With("component", "agent1"))
	scorer := agents.NewRelevanceAgent(gemini,
		a.cfg.Analyzer.TargetProduct, a.cfg.Analyzer.ProductDescription,
		callTimeout, a.logger.With("component", "agent2"))

	runCfg := domain.RunConfig{
		TargetProduct:      a.cfg.Analyzer.TargetProduct,
		ProductDescription: a.cfg.Analyzer.ProductDescription,
		ScoreThreshold:     a.cfg.Analyzer.ScoreThreshold,
		ModelID:            a.cfg.Analyzer.Model,
		ConcurrencyLimit:   a.cfg.Analyzer.Concurrency,
	}

	p := pipeline.New(a.store, safety, scorer, runCfg,
		a.logger.With("component", "pipeline"))

	run, err := p.Analyze(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	if a.history != nil {
		if err := a.history.RecordRun(ctx, run); err != nil {
			a.logger.Warn("record run history failed", "error", err)
		}
	}

	if a.notifier != nil {
		digest := notify.BuildDigest(run, 5)
		if err := a.notifier.PublishDigest(ctx, digest); err != nil {
			a.logger.Warn("publish digest failed", "error", err)
		}
	}

	return run, nil
}

// RunDay executes the two-phase daily contract: collect, then analyze
// the day's artifact unless nothing was collected.
func (a *Application) RunDay(ctx context.Context, day time.Time) error {
	count, err := a.Collect(ctx, day, nil)
	if err != nil {
		return fmt.Errorf("run day %s: %w", day.Format("2006-01-02"), err)
	}

	if count == 0 {
		a.logger.Warn("no articles collected, skipping analysis",
			"day", day.Format("2006-01-02"))
		return nil
	}

	run, err := a.Analyze(ctx, a.store.ArticlesPath(day))
	if err != nil {
		return fmt.Errorf("run day %s: %w", day.Format("2006-01-02"), err)
	}
	if run != nil {
		a.logger.Info("daily pipeline complete",
			"day", run.RunDate, "qualified", run.Stats.QualifiedCount)
	}
	return nil
}

// Serve runs the pipeline once immediately, then on the configured cron
// schedule until the context is cancelled. A failed day is logged and
// skipped; there is no partial re-run.
func (a *Application) Serve(ctx context.Context) error {
	job := func(trigger time.Time) {
		if err := a.RunDay(ctx, trigger); err != nil {
			a.logger.Error("daily run failed", "error", err)
		}
	}

	job(time.Now().In(a.cfg.Scheduler.Location()))

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	if err := driver.Start(ctx, job); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()
	return driver.Stop(context.Background())
}
