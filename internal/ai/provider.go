package ai

import (
	"context"
	"fmt"
)

// Provider defines the interface for generative question interpretation. The
// response is free text expected to contain one JSON object matching the
// navigation-intent schema; callers extract and validate it.
type Provider interface {
	GenerateIntent(ctx context.Context, question string, knownSites []string) (string, error)
}

// NewProvider creates a new AI provider based on the provider name.
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}
