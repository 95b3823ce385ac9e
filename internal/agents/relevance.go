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

// Fixed composite weighting: product fit matters more than raw reach.
const (
	RelevanceWeight = 0.6
	ViralWeight     = 0.4
)

var relevanceSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"relevance": {
			Type:        genai.TypeNumber,
			Description: "新聞熱點與產品核心功能的邏輯連結度 0.0-1.0",
		},
		"viral_potential": {
			Type:        genai.TypeNumber,
			Description: "該切入點在社群媒體的潛在討論爆發力 0.0-1.0",
		},
		"reasoning": {
			Type:        genai.TypeString,
			Description: "評分邏輯簡析，說明適配或排斥的關鍵原因",
		},
	},
	Required: []string{"relevance", "viral_potential", "reasoning"},
}

const relevancePrompt = `你是品牌借勢行銷適配專家。

根據以下「新聞摘要」與「目標產品」，評估此新聞是否適合用於借勢行銷（Trend-jacking）。

## 目標產品
- 產品名稱：%s
- 產品描述：%s

## 新聞資訊
- 分類：%s
- 標題：%s
- 摘要：%s

## 評估維度
1. **關聯度 (relevance)**：新聞熱點與產品核心功能/受眾的邏輯連結度（0.0-1.0）
**0.8-1.0**產品功能/成分與新聞主題直接相關（如：天冷→熱飲、水果新聞→水果茶）
**0.6-0.8**新聞場景中消費產品是自然行為（如：看電影→買飲料、逛夜市→喝手搖）
2. **傳播力 (viral_potential)**：該切入點在社群媒體的潛在討論爆發力（0.0-1.0）
3. **評分邏輯 (reasoning)**：簡述評分原因
**注意：不要當「濫好人」。如果新聞只是普通的社會事件，請勇敢給出低分。**`

type relevanceResponse struct {
	Relevance      float64 `json:"relevance"`
	ViralPotential float64 `json:"viral_potential"`
	Reasoning      string  `json:"reasoning"`
}

// RelevanceAgent scores safety-cleared articles against the target product.
type RelevanceAgent struct {
	invoker            llm.Invoker
	product            string
	productDescription string
	timeout            time.Duration
	logger             *slog.Logger
}

var _ ports.RelevanceScorer = (*RelevanceAgent)(nil)

// NewRelevanceAgent scopes the scorer to one target product.
func NewRelevanceAgent(invoker llm.Invoker, product, productDescription string, timeout time.Duration, logger *slog.Logger) *RelevanceAgent {
	return &RelevanceAgent{
		invoker:            invoker,
		product:            product,
		productDescription: productDescription,
		timeout:            timeout,
		logger:             logger,
	}
}

// Score rates one article's trend-jacking fit. The composite score is
// RelevanceWeight*relevance + ViralWeight*viral_potential.
func (a *RelevanceAgent) Score(ctx context.Context, item domain.SafetyAssessment) (domain.RelevanceAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(relevancePrompt,
		a.product, a.productDescription, item.Tag, item.Title, item.Brief)
	raw, err := a.invoker.GenerateJSON(ctx, prompt, relevanceSchema)
	if err != nil {
		return domain.RelevanceAssessment{}, fmt.Errorf("relevance call: %w", err)
	}

	var resp relevanceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.RelevanceAssessment{}, fmt.Errorf("decode relevance response: %w", err)
	}
	if err := resp.validate(); err != nil {
		return domain.RelevanceAssessment{}, fmt.Errorf("invalid relevance response: %w", err)
	}

	return domain.RelevanceAssessment{
		SafetyAssessment: item,
		Relevance:        resp.Relevance,
		ViralPotential:   resp.ViralPotential,
		Score:            RelevanceWeight*resp.Relevance + ViralWeight*resp.ViralPotential,
		Reasoning:        strings.TrimSpace(resp.Reasoning),
	}, nil
}

func (r relevanceResponse) validate() error {
	if r.Relevance < 0 || r.Relevance > 1 {
		return fmt.Errorf("relevance %v out of [0,1]", r.Relevance)
	}
	if r.ViralPotential < 0 || r.ViralPotential > 1 {
		return fmt.Errorf("viral_potential %v out of [0,1]", r.ViralPotential)
	}
	return nil
}
