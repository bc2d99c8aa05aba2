package llm

import (
	"context"
	"fmt"
	"strings"

	legacygenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator calls Gemini through the generative-ai-go SDK.
type GeminiGenerator struct {
	client *legacygenai.Client
	model  string
	temp   float32
	tokens int
}

func NewGemini(ctx context.Context, opts Options) (*GeminiGenerator, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := legacygenai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: opts.Model, temp: opts.Temperature, tokens: opts.MaxTokens}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if g.temp > 0 {
		model.SetTemperature(g.temp)
	}
	if g.tokens > 0 {
		model.SetMaxOutputTokens(int32(g.tokens))
	}

	resp, err := model.GenerateContent(ctx, legacygenai.Text(prompt))
	if err != nil {
		return "", classifyError("gemini generate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", emptyResponse("gemini generate")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(legacygenai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", emptyResponse("gemini generate")
	}
	return out, nil
}

func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
