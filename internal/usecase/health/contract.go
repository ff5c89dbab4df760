package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks language model availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks the optional cache store.
type CachePinger interface {
	Ping(ctx context.Context) error
}
