package llm

import (
	"context"
)

// LLMClient is the minimal surface the pipeline needs from a text model.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
