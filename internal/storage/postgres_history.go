package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"trendscan/internal/domain"
	"trendscan/internal/ports"
)

// RunHistory records per-day pipeline stats into Postgres for audit.
// The repository is optional; a nil *sql.DB turns every call into a no-op
// so the pipeline keeps working without a database.
type RunHistory struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRecorder = (*RunHistory)(nil)

// NewRunHistory wires a sql.DB handle.
func NewRunHistory(db *sql.DB) *RunHistory {
	return &RunHistory{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenRunHistory connects to Postgres with the given DSN.
func OpenRunHistory(dsn string) (*RunHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewRunHistory(db), nil
}

// RecordRun upserts the day's run stats.
func (r *RunHistory) RecordRun(ctx context.Context, run *domain.PipelineRun) error {
	if r.db == nil || run == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("pipeline_runs").
		Columns(
			"run_date", "target_product", "model_id", "score_threshold",
			"total_input", "stage1_success", "safe_count", "unsafe_count",
			"stage2_success", "qualified_count", "filtered_count",
		).
		Values(
			run.RunDate, run.Config.TargetProduct, run.Config.ModelID, run.Config.ScoreThreshold,
			run.Stats.TotalInput, run.Stats.Stage1Success, run.Stats.SafeCount, run.Stats.UnsafeCount,
			run.Stats.Stage2Success, run.Stats.QualifiedCount, run.Stats.FilteredCount,
		).
		Suffix(`ON CONFLICT (run_date) DO UPDATE SET
                total_input = EXCLUDED.total_input,
                stage1_success = EXCLUDED.stage1_success,
                safe_count = EXCLUDED.safe_count,
                unsafe_count = EXCLUDED.unsafe_count,
                stage2_success = EXCLUDED.stage2_success,
                qualified_count = EXCLUDED.qualified_count,
                filtered_count = EXCLUDED.filtered_count,
                recorded_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record run %s: %w", run.RunDate, err)
	}
	return nil
}

// LastRunDate returns the most recent recorded run date, or "" when the
// history is empty.
func (r *RunHistory) LastRunDate(ctx context.Context) (string, error) {
	if r.db == nil {
		return "", nil
	}

	query, args, err := r.builder.
		Select("run_date").
		From("pipeline_runs").
		OrderBy("run_date DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build last-run query: %w", err)
	}

	var runDate string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&runDate); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("query last run: %w", err)
	}
	return runDate, nil
}

// Close releases the underlying connection pool.
func (r *RunHistory) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
