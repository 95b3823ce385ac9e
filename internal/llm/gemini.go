// Package llm wraps the Gemini client in a minimal structured-output
// surface: one prompt in, one schema-constrained JSON document out.
// Decoding and validation stay with the callers so both agent stages
// handle malformed responses the same way.
package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Invoker is the structured-output call both agent stages depend on.
type Invoker interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

// Gemini implements Invoker against the Google generative AI API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Invoker = (*Gemini)(nil)

// NewGemini builds a client for the given model id.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateJSON runs one generation constrained to the given response
// schema and returns the raw JSON bytes of the first candidate.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	model := g.client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response part %T", resp.Candidates[0].Content.Parts[0])
	}

	return []byte(text), nil
}

// Close releases the underlying API connection.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
