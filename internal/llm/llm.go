// Package llm provides the text-generation capability consumed by the
// rewriter and the SQL-generation pipeline, backed by an OpenAI-compatible
// chat API. The pipeline depends only on the Generator contract.
package llm

import "context"

// Generator maps a prompt to generated text. Implementations are safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
