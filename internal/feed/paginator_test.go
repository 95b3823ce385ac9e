package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, listURL string) *Session {
	t.Helper()
	session, err := NewSession(listURL, 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func stubItem(date, tag, title string) string {
	return fmt.Sprintf(
		`<h3><span class="date">%s</span><em>%s</em><a href="https://news.example.com/a/1">%s</a></h3>`,
		date, tag, title)
}

// rollServer serves canned fragments per offset; offsets past the list
// return an empty body.
func rollServer(t *testing.T, pages []string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/roll" {
			w.WriteHeader(http.StatusOK)
			return
		}
		requests.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		offset := r.FormValue("offset")
		for i, page := range pages {
			if offset == fmt.Sprint(i+1) {
				_, _ = w.Write([]byte(page))
				return
			}
		}
		// Past the end: empty fragment.
	}))
	return server, &requests
}

func collectDay(t *testing.T, p *Paginator, stop *time.Time) []string {
	t.Helper()
	day := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)
	stubs, err := p.Collect(context.Background(), day, stop)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	titles := make([]string, len(stubs))
	for i, s := range stubs {
		titles[i] = s.Title
	}
	return titles
}

func TestPaginatorShortPageTerminates(t *testing.T) {
	t.Parallel()

	page := stubItem("2025/11/08 14:32", "生活", "First") +
		stubItem("2025/11/08 14:10", "影劇", "Second")
	server, requests := rollServer(t, []string{page})
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	titles := collectDay(t, p, nil)
	if len(titles) != 2 || titles[0] != "First" || titles[1] != "Second" {
		t.Fatalf("unexpected stubs: %v", titles)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected 1 page request, got %d", got)
	}
}

func TestPaginatorStopsAfterThreeZeroYieldPages(t *testing.T) {
	t.Parallel()

	// Full pages whose items are all tag-excluded: zero yield each.
	var excluded strings.Builder
	for i := 0; i < 10; i++ {
		excluded.WriteString(stubItem("2025/11/08 12:00", "政治", fmt.Sprintf("Skipped %d", i)))
	}
	pages := []string{excluded.String(), excluded.String(), excluded.String(), excluded.String()}
	server, requests := rollServer(t, pages)
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	titles := collectDay(t, p, nil)
	if len(titles) != 0 {
		t.Fatalf("expected no stubs, got %v", titles)
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("expected pagination to stop after 3 pages, got %d", got)
	}
}

func TestPaginatorStopTimeCutsPagination(t *testing.T) {
	t.Parallel()

	page := stubItem("2025/11/08 10:30", "生活", "Kept") +
		stubItem("2025/11/08 09:59", "生活", "TooEarly") +
		stubItem("2025/11/08 09:30", "生活", "AlsoTooEarly")
	server, requests := rollServer(t, []string{page, page})
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	stop := time.Date(0, time.January, 1, 10, 0, 0, 0, time.UTC)
	titles := collectDay(t, p, &stop)
	if len(titles) != 1 || titles[0] != "Kept" {
		t.Fatalf("expected only the pre-cutoff stub, got %v", titles)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected pagination to halt at the cutoff page, got %d requests", got)
	}
}

func TestPaginatorFiltersTagsAndDates(t *testing.T) {
	t.Parallel()

	page := stubItem("2025/11/08 14:32", "生活", "Wanted") +
		stubItem("2025/11/08 14:20", "政治", "ExcludedTag") +
		stubItem("2025/11/07 23:59", "生活", "WrongDay") +
		stubItem("not a timestamp", "生活", "BadTimestamp")
	server, _ := rollServer(t, []string{page})
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	titles := collectDay(t, p, nil)
	if len(titles) != 1 || titles[0] != "Wanted" {
		t.Fatalf("unexpected stubs: %v", titles)
	}
}

func TestPaginatorNormalizesTitles(t *testing.T) {
	t.Parallel()

	page := stubItem("2025/11/08 08:00", "寵物", "快訊　貓咪走紅")
	server, _ := rollServer(t, []string{page})
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	titles := collectDay(t, p, nil)
	if len(titles) != 1 || titles[0] != "快訊 貓咪走紅" {
		t.Fatalf("title not normalized: %v", titles)
	}
}

func TestPaginatorPageRequestFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewPaginator(newTestSession(t, server.URL+"/list"), server.URL+"/roll", nil, testLogger())

	day := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)
	if _, err := p.Collect(context.Background(), day, nil); err == nil {
		t.Fatal("expected a fatal error for a failing page request")
	}
}
