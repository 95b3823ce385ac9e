package agents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"trendscan/internal/domain"
)

type fakeInvoker struct {
	raw        []byte
	err        error
	lastPrompt string
}

func (f *fakeInvoker) GenerateJSON(_ context.Context, prompt string, _ *genai.Schema) ([]byte, error) {
	f.lastPrompt = prompt
	return f.raw, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testArticle() domain.RawArticle {
	return domain.RawArticle{
		Date:  "2025/11/08 14:30",
		Tag:   "生活",
		Href:  "https://example.com/a/1",
		Title: "天氣急凍",
		Story: "氣象署表示寒流來襲。",
	}
}

func TestSafetyAgentSafeArticle(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{raw: []byte(`{"news_brief":"寒流來襲，氣溫驟降。","is_safe":true,"safety_tags":[]}`)}
	agent := NewSafetyAgent(inv, time.Second, testLogger())

	got, err := agent.Assess(context.Background(), 3, testArticle())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Index != 3 {
		t.Fatalf("index = %d, want 3", got.Index)
	}
	if !got.IsSafe || len(got.SafetyTags) != 0 {
		t.Fatalf("unexpected verdict: safe=%v tags=%v", got.IsSafe, got.SafetyTags)
	}
	if got.Title != "天氣急凍" || got.Href != "https://example.com/a/1" {
		t.Fatalf("article fields not carried through: %+v", got)
	}
	if !strings.Contains(inv.lastPrompt, "天氣急凍") || !strings.Contains(inv.lastPrompt, "寒流來襲") {
		t.Fatalf("prompt missing article content:\n%s", inv.lastPrompt)
	}
}

func TestSafetyAgentUnsafeKeepsTags(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{raw: []byte(`{"news_brief":"重大車禍造成傷亡。","is_safe":false,"safety_tags":["死亡","重傷"]}`)}
	agent := NewSafetyAgent(inv, time.Second, testLogger())

	got, err := agent.Assess(context.Background(), 0, testArticle())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.IsSafe {
		t.Fatal("expected unsafe verdict")
	}
	if len(got.SafetyTags) != 2 || got.SafetyTags[0] != "死亡" {
		t.Fatalf("tags = %v", got.SafetyTags)
	}
}

func TestSafetyAgentClearsStrayTagsWhenSafe(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{raw: []byte(`{"news_brief":"輕鬆的生活新聞。","is_safe":true,"safety_tags":["情緒"]}`)}
	agent := NewSafetyAgent(inv, time.Second, testLogger())

	got, err := agent.Assess(context.Background(), 0, testArticle())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.SafetyTags == nil || len(got.SafetyTags) != 0 {
		t.Fatalf("expected empty tags for safe article, got %v", got.SafetyTags)
	}
}

func TestSafetyAgentStripsBriefNewlines(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{raw: []byte(`{"news_brief":"第一句。\n第二句。","is_safe":true,"safety_tags":[]}`)}
	agent := NewSafetyAgent(inv, time.Second, testLogger())

	got, err := agent.Assess(context.Background(), 0, testArticle())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Brief != "第一句。第二句。" {
		t.Fatalf("brief = %q", got.Brief)
	}
}

func TestSafetyAgentRejectsInvalidResponses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty brief", `{"news_brief":"  ","is_safe":true,"safety_tags":[]}`},
		{"unsafe without tags", `{"news_brief":"摘要。","is_safe":false,"safety_tags":[]}`},
		{"malformed json", `{"news_brief":`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agent := NewSafetyAgent(&fakeInvoker{raw: []byte(tc.raw)}, time.Second, testLogger())
			if _, err := agent.Assess(context.Background(), 0, testArticle()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSafetyAgentPropagatesInvokerError(t *testing.T) {
	t.Parallel()

	callErr := errors.New("quota exhausted")
	agent := NewSafetyAgent(&fakeInvoker{err: callErr}, time.Second, testLogger())

	_, err := agent.Assess(context.Background(), 0, testArticle())
	if !errors.Is(err, callErr) {
		t.Fatalf("err = %v, want wrapped %v", err, callErr)
	}
}
