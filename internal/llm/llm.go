// Package llm sends one text prompt to a hosted model and returns its text.
// The provider and the model name are configuration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/deusflow/vzradar/internal/fault"
)

const (
	ProviderGemini = "gemini" // github.com/google/generative-ai-go
	ProviderGenAI  = "genai"  // google.golang.org/genai
	ProviderOpenAI = "openai"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Options struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	// BaseURL overrides the provider endpoint (OpenAI-compatible servers, tests).
	BaseURL string
}

// New builds the generator for opts.Provider. The result may implement
// io.Closer.
func New(ctx context.Context, opts Options) (Generator, error) {
	if opts.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required for provider %q", opts.Provider)
	}
	switch opts.Provider {
	case ProviderGemini:
		return NewGemini(ctx, opts)
	case ProviderGenAI:
		return NewGenAI(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
}

// classifyError tags a provider error with a fault kind. Status codes are
// read from each SDK's error type; quota messages without a code still count
// as rate limiting.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fault.Network(op, err)
	}
	if code := statusCode(err); code != 0 {
		fe := fault.FromStatus(op, code)
		fe.Err = err
		return fe
	}
	if looksRateLimited(err.Error()) {
		return fault.New(fault.RateLimited, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fault.Network(op, err)
	}
	return fault.New(fault.UpstreamUnavailable, op, err)
}

func statusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return oaErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func looksRateLimited(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"429", "resource_exhausted", "resource exhausted", "quota", "rate limit"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func emptyResponse(op string) error {
	return fault.Parse(op, errors.New("model returned no text"))
}
