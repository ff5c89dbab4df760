package classify

import "context"

// Generator is the consumer interface for model-based classification (ISP).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
