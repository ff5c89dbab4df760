package locate

import "context"

// Generator is the consumer interface for model-assisted place resolution (ISP).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
