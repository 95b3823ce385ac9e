// Package agents implements the two structured-output LLM stages:
// the safety-summary assessor and the product-relevance scorer. Both
// decode and validate the model's JSON explicitly; a response that
// fails validation is the item's failure, never a crash.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"trendscan/internal/domain"
	"trendscan/internal/llm"
	"trendscan/internal/ports"
)

var safetySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"news_brief": {
			Type:        genai.TypeString,
			Description: "2-3句繁體中文摘要，僅包含核心事實，忽略廣告和推薦閱讀",
		},
		"is_safe": {
			Type:        genai.TypeBoolean,
			Description: "是否安全可用於行銷（true=安全, false=觸發紅線）",
		},
		"safety_tags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "觸發的安全紅線標籤，如 ['暴力', '天災']；安全則為空列表",
		},
	},
	Required: []string{"news_brief", "is_safe", "safety_tags"},
}

const safetyPrompt = `你是品牌行銷部的資深新聞分析師。

請閱讀以下新聞，完成摘要與安全審查：

1. **行銷導向摘要** (news_brief)：
   - 用 2-3 句繁體中文摘要，忽略記者聯絡資訊、推薦閱讀或無關廣告。
   - **重點提取**：除了人、事、時、地、物，請特別保留新聞中的「情緒關鍵字」（如：療癒、崩潰、驚喜、炎上）或「迷因潛力點」。

2. **安全審查** (is_safe & safety_tags)：
   - 判斷是否適合作為品牌行銷素材。
   - **嚴格過濾**：
     - 負面情緒強烈（仇恨、悲劇、絕望）
     - 爭議性話題（政治對立、性別歧視、宗教衝突）
     - 死亡、重傷、重大犯罪、天災
     - 噁心、血腥或引發生理不適的描寫

---
新聞標題：%s
新聞內容：%s`

type safetyResponse struct {
	NewsBrief  string   `json:"news_brief"`
	IsSafe     bool     `json:"is_safe"`
	SafetyTags []string `json:"safety_tags"`
}

// SafetyAgent produces a factual brief plus a safety verdict per article.
type SafetyAgent struct {
	invoker llm.Invoker
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.SafetyAssessor = (*SafetyAgent)(nil)

// NewSafetyAgent wires the structured-output invoker. timeout bounds
// each individual model call.
func NewSafetyAgent(invoker llm.Invoker, timeout time.Duration, logger *slog.Logger) *SafetyAgent {
	return &SafetyAgent{invoker: invoker, timeout: timeout, logger: logger}
}

// Assess summarizes one article and flags unsafe content. idx is the
// article's position in the collector artifact, carried through so
// downstream stages can reconcile counts positionally.
func (a *SafetyAgent) Assess(ctx context.Context, idx int, article domain.RawArticle) (domain.SafetyAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(safetyPrompt, article.Title, article.Story)
	raw, err := a.invoker.GenerateJSON(ctx, prompt, safetySchema)
	if err != nil {
		return domain.SafetyAssessment{}, fmt.Errorf("safety call: %w", err)
	}

	var resp safetyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.SafetyAssessment{}, fmt.Errorf("decode safety response: %w", err)
	}
	if err := resp.validate(); err != nil {
		return domain.SafetyAssessment{}, fmt.Errorf("invalid safety response: %w", err)
	}

	tags := resp.SafetyTags
	if resp.IsSafe {
		// Models occasionally emit advisory tags for safe articles;
		// the invariant is tags empty iff safe.
		tags = []string{}
	}

	return domain.SafetyAssessment{
		Index:      idx,
		Date:       article.Date,
		Tag:        article.Tag,
		Href:       article.Href,
		Title:      article.Title,
		Brief:      strings.ReplaceAll(resp.NewsBrief, "\n", ""),
		IsSafe:     resp.IsSafe,
		SafetyTags: tags,
	}, nil
}

func (r safetyResponse) validate() error {
	if strings.TrimSpace(r.NewsBrief) == "" {
		return fmt.Errorf("empty news_brief")
	}
	if !r.IsSafe && len(r.SafetyTags) == 0 {
		return fmt.Errorf("unsafe verdict without safety tags")
	}
	return nil
}
