// Package llm abstracts the generative model that turns report text into
// structured JSON. The pipeline only ever depends on the Provider interface,
// so tests substitute a stub returning fixed replies.
package llm

import (
	"context"
	"fmt"
)

// Provider is the interface for all model providers.
type Provider interface {
	// Generate sends one prompt and returns the model's text reply.
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the named provider. An empty name means Gemini, the
// default extraction backend.
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "", "gemini":
		return &GeminiProvider{Model: model}, nil
	case "deepseek":
		return &DeepSeekProvider{Model: model}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}

// StubProvider returns a fixed reply for every prompt. Used by tests and by
// offline runs; it never touches the network.
type StubProvider struct {
	Reply string
	Err   error
	// Calls records every prompt received, in order.
	Calls []string
}

func (s *StubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.Calls = append(s.Calls, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}
