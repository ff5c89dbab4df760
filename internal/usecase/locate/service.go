// Package locate resolves a single administrative region from free Korean
// text. Cheap deterministic tiers run first; model-assisted tiers handle
// informal place names (neighborhoods, landmarks) the gazetteer does not
// list. Every tier is independently fallible and failure means "try the
// next tier", never an error.
package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/gazetteer"
)

var (
	suffixRe       = regexp.MustCompile(`[가-힣]+[구시군]`)
	neighborhoodRe = regexp.MustCompile(`[가-힣]+동`)
	jsonObjectRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// stopwords are generic domain nouns that would otherwise be sent to the
// model as place candidates.
var stopwords = map[string]struct{}{
	"일자리": {}, "복지": {}, "프로그램": {}, "센터": {}, "시설": {},
	"병원": {}, "학교": {}, "마트": {}, "정보": {}, "채용": {},
	"노인": {}, "시니어": {}, "어르신": {}, "추천": {}, "안내": {},
	"근처": {}, "주변": {}, "문화": {}, "교육": {}, "운동": {},
}

// Service extracts locations from query text.
type Service struct {
	gaz    *gazetteer.Gazetteer
	gen    Generator
	logger *zap.Logger
}

// NewService creates a location extractor. gen may be nil, in which case
// only the deterministic tiers run.
func NewService(gaz *gazetteer.Gazetteer, gen Generator, logger *zap.Logger) *Service {
	return &Service{gaz: gaz, gen: gen, logger: logger}
}

// Extract resolves at most one region from the query. Returns false when no
// tier produced a region known to the gazetteer.
func (s *Service) Extract(ctx context.Context, query string) (route.Location, bool) {
	if loc, ok := s.matchDirect(query); ok {
		return loc, true
	}
	if loc, ok := s.matchSuffix(query); ok {
		return loc, true
	}
	if s.gen == nil {
		return route.Location{}, false
	}
	if loc, ok := s.resolveNeighborhood(ctx, query); ok {
		return loc, true
	}
	// A 구/시/군-suffixed token that already failed gazetteer validation
	// means the query named its place; resolving leftover tokens would only
	// pick somewhere else. Skip straight to the whole-query tier.
	if !suffixRe.MatchString(query) {
		if loc, ok := s.resolveTokens(ctx, query); ok {
			return loc, true
		}
	}
	return s.resolveWholeQuery(ctx, query)
}

// matchDirect scans every known region name for literal containment in the
// query. Cities are scanned in declared order and regions in declared order
// within each city, so a query naming two regions resolves to the first one
// by that ordering, not by position in the text.
func (s *Service) matchDirect(query string) (route.Location, bool) {
	for _, city := range s.gaz.Cities() {
		set, _ := s.gaz.Set(city)
		for _, r := range set.Regions() {
			if strings.Contains(query, r.Name()) {
				return route.Location{City: city, Region: r.Name()}, true
			}
		}
	}
	return route.Location{}, false
}

// matchSuffix pulls 구/시/군-suffixed tokens and validates each against the
// gazetteer.
func (s *Service) matchSuffix(query string) (route.Location, bool) {
	for _, candidate := range suffixRe.FindAllString(query, -1) {
		if city, ok := s.gaz.ParentCityOf(candidate); ok {
			return route.Location{City: city, Region: candidate}, true
		}
	}
	return route.Location{}, false
}

// resolveNeighborhood handles 동-suffixed sub-district names by asking the
// model which known region owns the neighborhood.
func (s *Service) resolveNeighborhood(ctx context.Context, query string) (route.Location, bool) {
	candidates := neighborhoodRe.FindAllString(query, -1)
	if len(candidates) == 0 {
		return route.Location{}, false
	}
	prompt := fmt.Sprintf(`다음 동(洞) 이름이 어느 행정구역에 속하는지 알려주세요.

### 동 이름:
%s

### 알려진 행정구역:
%s

### 응답 형식:
JSON 형식으로만 응답하세요. 예시: {"city": "서울특별시", "region": "강남구"}
목록에 없는 지역이면 {"city": null, "region": null}로 응답하세요.`,
		strings.Join(candidates, ", "), s.regionListing())
	return s.askModel(ctx, prompt)
}

// resolveTokens sends leftover query tokens to the model as potential
// neighborhood or landmark names.
func (s *Service) resolveTokens(ctx context.Context, query string) (route.Location, bool) {
	var tokens []string
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return route.Location{}, false
	}
	prompt := fmt.Sprintf(`다음 단어들 중 동네 이름, 지하철역, 랜드마크가 있다면 그것이 속한 행정구역을 알려주세요.

### 단어 목록:
%s

### 알려진 행정구역:
%s

### 응답 형식:
JSON 형식으로만 응답하세요. 예시: {"city": "경기도", "region": "수원시"}
해당하는 지역이 없으면 {"city": null, "region": null}로 응답하세요.`,
		strings.Join(tokens, ", "), s.regionListing())
	return s.askModel(ctx, prompt)
}

// resolveWholeQuery is the last resort: the model reads the raw query.
func (s *Service) resolveWholeQuery(ctx context.Context, query string) (route.Location, bool) {
	prompt := fmt.Sprintf(`다음 사용자 질문에서 한국 행정구역(구, 시, 군)을 하나 추출해주세요.

### 사용자 질문:
%s

### 알려진 행정구역:
%s

### 응답 형식:
JSON 형식으로만 응답하세요. 예시: {"city": "서울특별시", "region": "강남구"}
지역이 없으면 {"city": null, "region": null}로 응답하세요.`,
		query, s.regionListing())
	return s.askModel(ctx, prompt)
}

func (s *Service) regionListing() string {
	var b strings.Builder
	for _, city := range s.gaz.Cities() {
		set, _ := s.gaz.Set(city)
		names := make([]string, 0, len(set.Regions()))
		for _, r := range set.Regions() {
			names = append(names, r.Name())
		}
		fmt.Fprintf(&b, "%s: %s\n", city, strings.Join(names, ", "))
	}
	return b.String()
}

type locationPayload struct {
	City   string `json:"city"`
	Region string `json:"region"`
}

// askModel runs one resolution prompt and validates the answer against the
// gazetteer. Model failures and hallucinated regions both read as "no match".
func (s *Service) askModel(ctx context.Context, prompt string) (route.Location, bool) {
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("place resolution call failed", zap.Error(err))
		return route.Location{}, false
	}

	payload, ok := parseLocationPayload(text)
	if !ok {
		s.logger.Debug("place resolution returned unparsable text", zap.String("text", text))
		return route.Location{}, false
	}

	if payload.Region == "" {
		return route.Location{}, false
	}
	if payload.City != "" && s.gaz.Contains(payload.City, payload.Region) {
		return route.Location{City: payload.City, Region: payload.Region}, true
	}
	// Model omitted or misnamed the city; trust the region if it is known.
	if city, ok := s.gaz.ParentCityOf(payload.Region); ok {
		return route.Location{City: city, Region: payload.Region}, true
	}
	return route.Location{}, false
}

// parseLocationPayload tries strict JSON first, then recovers an object
// embedded in surrounding prose or code fences.
func parseLocationPayload(text string) (locationPayload, bool) {
	var payload locationPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return payload, true
	}
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return locationPayload{}, false
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return locationPayload{}, false
	}
	return payload, true
}
