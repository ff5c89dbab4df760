// Package scope turns a resolved location and a namespace into the ordered
// region list a search should be filtered to.
package scope

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/gazetteer"
)

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// Scope is an ordered region filter for a search. Empty Regions means the
// search runs unfiltered. HasTarget marks the first entry as a resolved
// target region eligible for staged widening; a popular-default scope has
// no target and is searched in one shot.
type Scope struct {
	Regions   []string
	HasTarget bool
}

// Service builds search scopes.
type Service struct {
	gaz          *gazetteer.Gazetteer
	gen          Generator
	maxNeighbors int
	enrich       bool
	logger       *zap.Logger
}

// NewService creates a scope builder. When enrich is set and gen is
// non-nil, the model reorders declared neighbors by topical relevance;
// otherwise the declared proximity order is used as is.
func NewService(gaz *gazetteer.Gazetteer, gen Generator, maxNeighbors int, enrich bool, logger *zap.Logger) *Service {
	return &Service{gaz: gaz, gen: gen, maxNeighbors: maxNeighbors, enrich: enrich, logger: logger}
}

// Build returns the scope for a search: the target region first, then up
// to maxNeighbors neighbors. Strict namespaces refuse to widen to popular
// defaults and surface domain.ErrScopeRequired instead.
func (s *Service) Build(ctx context.Context, query string, loc *route.Location, ns namespace.Namespace) (Scope, error) {
	target := s.project(loc, ns)

	if target == "" {
		if !ns.RequiresRegion() {
			return Scope{}, nil
		}
		if ns.StrictRegion() {
			return Scope{}, domain.ErrScopeRequired
		}
		return Scope{Regions: s.qualify(ns, s.gaz.PopularOf(ns.City()))}, nil
	}

	neighbors := s.neighborsFor(ctx, query, target, ns)
	regions := s.qualify(ns, append([]string{target}, neighbors...))
	return Scope{Regions: regions, HasTarget: true}, nil
}

// project checks the resolved location against the namespace's own city.
// A region resolved in another city must not filter this namespace.
func (s *Service) project(loc *route.Location, ns namespace.Namespace) string {
	if loc == nil || loc.Region == "" || ns.City() == "" {
		return ""
	}
	if loc.City != ns.City() {
		return ""
	}
	return loc.Region
}

// neighborsFor picks the neighbor tail of the scope: declared order by
// default, model-ranked when enrichment is on. Model output is filtered to
// the declared neighbor set; an empty filtered list falls back to the cheap
// default.
func (s *Service) neighborsFor(ctx context.Context, query, target string, ns namespace.Namespace) []string {
	cheap := s.gaz.NeighborsOf(ns.City(), target, s.maxNeighbors)

	if !s.enrich || s.gen == nil {
		return cheap
	}

	set, ok := s.gaz.Set(ns.City())
	if !ok {
		return cheap
	}
	region, ok := set.Get(target)
	if !ok || len(region.Neighbors()) == 0 {
		return cheap
	}

	ranked := s.rankNeighbors(ctx, query, target, region.Neighbors())
	if len(ranked) == 0 {
		return cheap
	}
	if len(ranked) > s.maxNeighbors {
		ranked = ranked[:s.maxNeighbors]
	}
	return ranked
}

func (s *Service) rankNeighbors(ctx context.Context, query, target string, declared []string) []string {
	prompt := fmt.Sprintf(`사용자가 "%s"라고 검색했고, 여기서 "%s"를 검색 지역으로 식별했습니다.
다음 인접 지역 중에서 이 검색어와 가장 관련이 높을 것 같은 지역을 최대 %d개 선택해주세요:
%s

### 응답 형식:
JSON 형식으로 응답해 주세요. 선택한 지역 이름만 배열로 제공하세요.
예시: ["지역이름1", "지역이름2", "지역이름3"]`,
		query, target, s.maxNeighbors, strings.Join(declared, ", "))

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("neighbor ranking call failed", zap.Error(err))
		return nil
	}

	names, ok := decodeArray(text)
	if !ok {
		s.logger.Debug("neighbor ranking returned unparsable text", zap.String("text", text))
		return nil
	}

	allowed := make(map[string]struct{}, len(declared))
	for _, n := range declared {
		allowed[n] = struct{}{}
	}
	var valid []string
	for _, n := range names {
		if _, ok := allowed[n]; ok && n != target {
			valid = append(valid, n)
		}
	}
	return valid
}

// qualify maps region names to filter values. Strict namespaces store
// records under fully qualified "city region" tags.
func (s *Service) qualify(ns namespace.Namespace, regions []string) []string {
	if !ns.StrictRegion() {
		return regions
	}
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = ns.City() + " " + r
	}
	return out
}

func decodeArray(text string) ([]string, bool) {
	var names []string
	if err := json.Unmarshal([]byte(text), &names); err == nil {
		return names, true
	}
	match := jsonArrayRe.FindString(text)
	if match == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(match), &names); err != nil {
		return nil, false
	}
	return names, true
}
