package chi

import (
	"context"

	"github.com/silverpath-kr/silverpath/internal/domain/route"
	exploreuc "github.com/silverpath-kr/silverpath/internal/usecase/explore"
	healthuc "github.com/silverpath-kr/silverpath/internal/usecase/health"
)

// Pipeline routes one user query end to end.
type Pipeline interface {
	Process(ctx context.Context, query string, hint *route.Location) (*route.Context, error)
}

// Explorer assembles location-aware discovery content.
type Explorer interface {
	Explore(ctx context.Context, city, district string) exploreuc.Result
}

// HealthChecker aggregates collaborator health checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
