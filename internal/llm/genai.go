package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIGenerator calls Gemini through the google.golang.org/genai SDK.
type GenAIGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGenAI(ctx context.Context, opts Options) (*GenAIGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	gc := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		gc.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	return &GenAIGenerator{client: client, model: opts.Model, config: gc}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", classifyError("genai generate", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", emptyResponse("genai generate")
	}
	return out, nil
}
