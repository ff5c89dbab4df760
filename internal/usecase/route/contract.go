package route

import (
	"context"

	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/usecase/scope"
)

// Locator resolves a region from free text.
type Locator interface {
	Extract(ctx context.Context, query string) (route.Location, bool)
}

// Classifier picks a namespace for a query.
type Classifier interface {
	Classify(ctx context.Context, query string, loc *route.Location) route.Classification
}

// ScopeBuilder turns a location and namespace into a search scope.
type ScopeBuilder interface {
	Build(ctx context.Context, query string, loc *route.Location, ns namespace.Namespace) (scope.Scope, error)
}

// Searcher queries one namespace of the vector index.
type Searcher interface {
	Search(ctx context.Context, namespace, query string, regions []string, topK, rerankTopN int, rerank bool) ([]route.Hit, error)
}

// Generator produces free-text answers for the fallback path.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
