package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trendscan/internal/domain"
	"trendscan/internal/ports"
)

// FileStore persists one raw-article artifact and one pipeline artifact
// per calendar day, path keyed by date. The file boundary between the
// collect and analyze phases is a deliberate checkpoint: either phase
// can be re-run or inspected independently.
type FileStore struct {
	dir    string
	source string
}

var _ ports.ArtifactStore = (*FileStore)(nil)

// NewFileStore writes artifacts under dir; source prefixes the raw
// artifact name (e.g. "ettoday").
func NewFileStore(dir, source string) *FileStore {
	if source == "" {
		source = "ettoday"
	}
	return &FileStore{dir: dir, source: source}
}

// ArticlesPath returns the raw-article artifact path for a day.
func (s *FileStore) ArticlesPath(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", s.source, day.Format("2006-01-02")))
}

// RunPath returns the pipeline artifact path for a day.
func (s *FileStore) RunPath(runDate string) string {
	return filepath.Join(s.dir, fmt.Sprintf("pipeline_%s.json", runDate))
}

// SaveArticles writes the collector output as a JSON array.
func (s *FileStore) SaveArticles(day time.Time, articles []domain.RawArticle) (string, error) {
	path := s.ArticlesPath(day)
	if err := s.writeJSON(path, articles); err != nil {
		return "", fmt.Errorf("save articles: %w", err)
	}
	return path, nil
}

// LoadArticles reads a collector artifact. A missing or corrupt file is
// a stage-fatal error for the analyze phase.
func (s *FileStore) LoadArticles(path string) ([]domain.RawArticle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles artifact: %w", err)
	}

	var articles []domain.RawArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, fmt.Errorf("decode articles artifact %s: %w", path, err)
	}
	return articles, nil
}

// SaveRun writes the terminal pipeline artifact.
func (s *FileStore) SaveRun(run *domain.PipelineRun) (string, error) {
	path := s.RunPath(run.RunDate)
	if err := s.writeJSON(path, run); err != nil {
		return "", fmt.Errorf("save pipeline run: %w", err)
	}
	return path, nil
}

func (s *FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
