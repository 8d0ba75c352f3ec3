package ai

import "context"

// Runtime is implemented by every backend that can answer a math problem.
// Solve returns the model's raw text; errors belong to this package's
// taxonomy so UserMessage can render them.
type Runtime interface {
	Solve(ctx context.Context, problem string) (string, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	_ Runtime = (*Client)(nil)
	_ Runtime = (*OpenAIClient)(nil)
)
