package explore

import (
	"context"

	"github.com/silverpath-kr/silverpath/internal/domain/route"
)

// Generator phrases the auto-generated discovery question.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pipeline answers the generated question.
type Pipeline interface {
	Process(ctx context.Context, query string, hint *route.Location) (*route.Context, error)
}
