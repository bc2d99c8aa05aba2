package llm

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator calls the chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	temp   float32
	tokens int
}

func NewOpenAI(opts Options) *OpenAIGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
		temp:   opts.Temperature,
		tokens: opts.MaxTokens,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: g.temp,
		MaxTokens:   g.tokens,
	})
	if err != nil {
		return "", classifyError("openai generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", emptyResponse("openai generate")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", emptyResponse("openai generate")
	}
	return out, nil
}
