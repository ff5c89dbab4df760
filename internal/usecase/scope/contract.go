package scope

import "context"

// Generator is the consumer interface for neighbor relevance ranking (ISP).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
