package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendscan/internal/domain"
	"trendscan/internal/feed"
	"trendscan/internal/ports"
)

type fakeStubSource struct {
	stubs []domain.RawArticle
	err   error
}

func (f *fakeStubSource) Collect(context.Context, time.Time, *time.Time) ([]domain.RawArticle, error) {
	return f.stubs, f.err
}

type fakeBodyFetcher struct {
	bodies map[string]string
}

func (f *fakeBodyFetcher) FetchBody(_ context.Context, href string) string {
	return f.bodies[href]
}

type captureStore struct {
	saved   []domain.RawArticle
	saveErr error
}

var _ ports.ArtifactStore = (*captureStore)(nil)

func (s *captureStore) SaveArticles(day time.Time, articles []domain.RawArticle) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = articles
	return s.ArticlesPath(day), nil
}

func (s *captureStore) LoadArticles(string) ([]domain.RawArticle, error) { return s.saved, nil }

func (s *captureStore) ArticlesPath(day time.Time) string {
	return day.Format("2006-01-02") + ".json"
}

func (s *captureStore) SaveRun(*domain.PipelineRun) (string, error) { return "", nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newSession(t *testing.T, listURL string) *feed.Session {
	t.Helper()
	s, err := feed.NewSession(listURL, 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestRunKeepsArticlesWithFailedBodies(t *testing.T) {
	t.Parallel()

	server := okServer(t)
	stubs := &fakeStubSource{stubs: []domain.RawArticle{
		{Date: "2025/11/08 14:30", Tag: "生活", Href: "https://example.com/1", Title: "有內文"},
		{Date: "2025/11/08 13:00", Tag: "影劇", Href: "https://example.com/2", Title: "內文失敗"},
	}}
	bodies := &fakeBodyFetcher{bodies: map[string]string{
		"https://example.com/1": "第一篇內容",
	}}
	store := &captureStore{}

	c := New(newSession(t, server.URL), stubs, bodies, store, testLogger())
	day := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	articles, err := c.Run(context.Background(), day, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if articles[0].Story != "第一篇內容" {
		t.Fatalf("story = %q", articles[0].Story)
	}
	if articles[1].Story != "" {
		t.Fatalf("expected empty story for failed fetch, got %q", articles[1].Story)
	}
	if len(store.saved) != 2 || store.saved[1].Title != "內文失敗" {
		t.Fatalf("persisted articles = %+v", store.saved)
	}
}

func TestRunBootstrapFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	c := New(newSession(t, server.URL), &fakeStubSource{}, &fakeBodyFetcher{}, &captureStore{}, testLogger())
	day := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	if _, err := c.Run(context.Background(), day, nil); err == nil {
		t.Fatal("expected bootstrap failure")
	}
}

func TestRunPaginationFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := okServer(t)
	collectErr := errors.New("feed unreachable")
	c := New(newSession(t, server.URL), &fakeStubSource{err: collectErr}, &fakeBodyFetcher{}, &captureStore{}, testLogger())
	day := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	if _, err := c.Run(context.Background(), day, nil); !errors.Is(err, collectErr) {
		t.Fatalf("err = %v, want wrapped %v", err, collectErr)
	}
}

func TestRunPersistFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := okServer(t)
	saveErr := errors.New("disk full")
	stubs := &fakeStubSource{stubs: []domain.RawArticle{
		{Date: "2025/11/08 14:30", Tag: "生活", Href: "https://example.com/1", Title: "x"},
	}}
	c := New(newSession(t, server.URL), stubs, &fakeBodyFetcher{}, &captureStore{saveErr: saveErr}, testLogger())
	day := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	if _, err := c.Run(context.Background(), day, nil); !errors.Is(err, saveErr) {
		t.Fatalf("err = %v, want wrapped %v", err, saveErr)
	}
}
