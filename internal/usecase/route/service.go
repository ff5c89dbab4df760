// Package route drives a query through the full pipeline: location
// extraction, namespace classification, scope expansion, progressive
// search, and the generative fallback.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/gazetteer"
	"github.com/silverpath-kr/silverpath/internal/metrics"
)

// Config holds the widening parameters.
type Config struct {
	// SufficiencyThreshold is the accumulated hit count at which widening
	// stops. A soft target: the neighbor stage runs once and stops
	// whatever it returns.
	SufficiencyThreshold int
	TopK                 int
	RerankTopN           int
}

// Deps are the pipeline collaborators.
type Deps struct {
	Catalog    namespace.Catalog
	Gazetteer  *gazetteer.Gazetteer
	Locator    Locator
	Classifier Classifier
	Scopes     ScopeBuilder
	Searcher   Searcher
	Answerer   Generator
	// Augment rewrites the raw query into the fallback prompt. Nil uses
	// the default weather-aware augmentation.
	Augment PromptAugmenter
}

// Service processes queries.
type Service struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// NewService creates the routing pipeline.
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if deps.Augment == nil {
		deps.Augment = DefaultAugment
	}
	return &Service{deps: deps, cfg: cfg, logger: logger}
}

// Process routes one query. The returned context always carries whatever
// the pipeline learned, even alongside an error. hint is a caller-supplied
// location used only when nothing is found in the text itself.
func (s *Service) Process(ctx context.Context, query string, hint *route.Location) (*route.Context, error) {
	qc := route.NewContext(query)
	qc.Location = s.resolveLocation(ctx, query, hint)

	cls := s.deps.Classifier.Classify(ctx, query, qc.Location)
	qc.NamespaceKey = cls.NamespaceKey
	qc.Confidence = cls.Confidence
	qc.Reasoning = cls.Reasoning
	qc.FastPath = cls.FastPath

	if cls.Miss() {
		s.logger.Info("no namespace fits, answering directly",
			zap.String("query", query),
			zap.Float64("confidence", cls.Confidence))
		s.fallback(ctx, qc)
		return qc, nil
	}

	ns, ok := s.deps.Catalog.Get(cls.NamespaceKey)
	if !ok {
		return qc, fmt.Errorf("classifier produced key %q: %w", cls.NamespaceKey, domain.ErrNamespaceUnknown)
	}

	sc, err := s.deps.Scopes.Build(ctx, query, qc.Location, ns)
	if err != nil {
		return qc, err
	}
	qc.Scope = sc.Regions

	s.runStages(ctx, qc, sc.Regions, sc.HasTarget)

	if len(qc.Hits) == 0 {
		s.fallback(ctx, qc)
	}
	return qc, nil
}

// resolveLocation prefers what the text says over the caller's hint. A
// hint naming a region the gazetteer does not know is dropped.
func (s *Service) resolveLocation(ctx context.Context, query string, hint *route.Location) *route.Location {
	if loc, ok := s.deps.Locator.Extract(ctx, query); ok {
		return &loc
	}
	if hint == nil || hint.Region == "" {
		return nil
	}
	if hint.City != "" && s.deps.Gazetteer.Contains(hint.City, hint.Region) {
		loc := *hint
		return &loc
	}
	if city, ok := s.deps.Gazetteer.ParentCityOf(hint.Region); ok {
		return &route.Location{City: city, Region: hint.Region}
	}
	s.logger.Debug("dropping unknown location hint",
		zap.String("city", hint.City), zap.String("region", hint.Region))
	return nil
}

// runStages widens the search progressively: target region, then remaining
// scope, then nothing further. An empty scope searches the whole namespace
// in one shot; a scope without a target (popular default) is also single-shot.
func (s *Service) runStages(ctx context.Context, qc *route.Context, regions []string, hasTarget bool) {
	if len(regions) == 0 {
		qc.Hits = s.searchStage(ctx, qc, "unfiltered", nil, s.cfg.TopK, s.cfg.RerankTopN)
		return
	}
	if !hasTarget {
		qc.Hits = s.searchStage(ctx, qc, "target", regions, s.cfg.TopK, s.cfg.RerankTopN)
		return
	}

	target := regions[0]
	qc.Hits = s.searchStage(ctx, qc, "target", []string{target}, s.cfg.TopK, s.cfg.RerankTopN)
	if len(qc.Hits) >= s.cfg.SufficiencyThreshold {
		qc.Scope = []string{target}
		return
	}

	rest := regions[1:]
	if len(rest) == 0 {
		return
	}
	need := s.cfg.SufficiencyThreshold - len(qc.Hits)
	topN := s.cfg.RerankTopN
	if need < topN {
		topN = need
	}
	more := s.searchStage(ctx, qc, "neighbor", rest, need, topN)
	qc.Hits = append(qc.Hits, more...)
}

// searchStage runs one search call. A rerank input overflow is retried once
// without reranking; any other failure reads as zero hits for the stage so
// the pipeline can still fall back.
func (s *Service) searchStage(ctx context.Context, qc *route.Context, stage string, regions []string, topK, rerankTopN int) []route.Hit {
	start := time.Now()
	hits, err := s.deps.Searcher.Search(ctx, qc.NamespaceKey, qc.RawQuery, regions, topK, rerankTopN, true)
	if errors.Is(err, domain.ErrRerankInputTooLarge) {
		s.logger.Warn("rerank input too large, retrying without rerank",
			zap.String("namespace", qc.NamespaceKey),
			zap.String("stage", stage))
		hits, err = s.deps.Searcher.Search(ctx, qc.NamespaceKey, qc.RawQuery, regions, topK, rerankTopN, false)
	}
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(stage, "error").Inc()
		s.logger.Warn("search stage failed",
			zap.String("namespace", qc.NamespaceKey),
			zap.String("stage", stage),
			zap.Strings("regions", regions),
			zap.Error(err))
		return nil
	}
	metrics.SearchRequestsTotal.WithLabelValues(stage, "success").Inc()
	metrics.SearchRequestDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return hits
}
