// Package explore builds location-aware discovery content: recommended
// searches for the caller's district plus one auto-generated question
// answered through the routing pipeline.
package explore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/gazetteer"
)

const previewRunes = 200

// category templates for the auto-generated question. %s placeholders are
// city then district.
var categories = []struct {
	name     string
	template string
}{
	{"문화", "%s %s의 문화 정보"},
	{"정책", "%s %s의 정책 정보"},
	{"쇼핑", "%s %s의 쇼핑 정보, 쇼핑 특가"},
	{"일자리", "%s %s의 시니어 일자리 정보"},
	{"복지시설", "%s %s의 노인복지시설 정보"},
	{"건강", "%s %s의 시니어 건강 프로그램"},
	{"교육", "%s %s의 평생교육 프로그램"},
	{"여가", "%s %s의 시니어 여가 활동"},
	{"의료", "%s %s의 의료 서비스 안내"},
	{"교통", "%s %s의 시니어 교통 할인 정보"},
	{"주거", "%s %s의 시니어 주거 지원 정보"},
	{"식사", "%s %s의 경로식당 및 도시락 배달 서비스"},
}

var popularSearches = []string{
	"방문요양 서비스",
	"노인 일자리 채용",
	"실버 문화강좌",
	"건강검진 안내",
	"복지관 프로그램",
}

// Result is the assembled discovery payload.
type Result struct {
	City            string
	District        string
	Recommendations []string
	PopularSearches []string
	NearbyDistricts []string
	GeneratedQuery  string
	Category        string
	Response        *QueryResponse
}

// QueryResponse is the answer to the auto-generated question.
type QueryResponse struct {
	Fallback bool
	Content  string
	Previews []Preview
}

// Preview is a trimmed search hit.
type Preview struct {
	Title    string
	Category string
	Content  string
}

// Service assembles discovery content.
type Service struct {
	gaz      *gazetteer.Gazetteer
	gen      Generator
	pipeline Pipeline
	pick     func(n int) int
	logger   *zap.Logger
}

// NewService creates the explore service. gen and pipeline may be nil, in
// which case the auto-generated question is skipped.
func NewService(gaz *gazetteer.Gazetteer, gen Generator, pipeline Pipeline, logger *zap.Logger) *Service {
	return &Service{gaz: gaz, gen: gen, pipeline: pipeline, pick: rand.IntN, logger: logger}
}

// Explore builds discovery content for a caller location. Both city and
// district are optional; an empty location yields an empty Result.
func (s *Service) Explore(ctx context.Context, city, district string) Result {
	if city == "" && district == "" {
		return Result{}
	}

	res := Result{
		City:            city,
		District:        district,
		Recommendations: recommendationsFor(city, district),
		PopularSearches: popularSearches,
		NearbyDistricts: s.nearby(city, district),
	}

	if city != "" && district != "" && s.gen != nil && s.pipeline != nil {
		s.generateQuery(ctx, &res)
	}
	return res
}

func recommendationsFor(city, district string) []string {
	switch {
	case strings.Contains(city, "서울"):
		return []string{
			district + " 노인복지관",
			district + " 경로당",
			district + " 시니어 일자리",
			district + " 문화센터 프로그램",
			district + " 방문요양센터",
		}
	case strings.Contains(city, "경기"):
		return []string{
			district + " 노인복지시설",
			district + " 실버 일자리",
			district + " 평생교육원",
			district + " 주간보호센터",
			district + " 노인교실",
		}
	case strings.Contains(city, "인천"):
		return []string{
			district + " 노인복지관",
			district + " 시니어클럽",
			district + " 문화강좌",
			district + " 일자리센터",
			district + " 경로당",
		}
	default:
		return []string{
			"노인복지시설 찾기",
			"시니어 일자리 정보",
			"문화 프로그램 안내",
			"건강 관리 서비스",
			"여가 활동 정보",
		}
	}
}

// nearby lists up to three declared neighbors of the caller's district.
// Unlike search-scope building there is no popular fallback here; an
// unknown district simply yields nothing.
func (s *Service) nearby(city, district string) []string {
	if district == "" {
		return nil
	}
	if city == "" {
		parent, ok := s.gaz.ParentCityOf(district)
		if !ok {
			return nil
		}
		city = parent
	}
	set, ok := s.gaz.Set(city)
	if !ok {
		return nil
	}
	region, ok := set.Get(district)
	if !ok {
		return nil
	}
	neighbors := region.Neighbors()
	if len(neighbors) > 3 {
		neighbors = neighbors[:3]
	}
	return neighbors
}

// generateQuery picks a random category, has the model phrase a natural
// question about it, and answers the question through the pipeline. Any
// failure is logged and the result ships without a generated question.
func (s *Service) generateQuery(ctx context.Context, res *Result) {
	cat := categories[s.pick(len(categories))]
	res.Category = cat.name
	res.GeneratedQuery = fmt.Sprintf(cat.template, res.City, res.District)

	prompt := fmt.Sprintf(`다음 주제에 대해 자연스럽고 구체적인 질문을 하나 만들어주세요.
주제: %s
카테고리: %s

시니어(노인)를 위한 정보를 찾는 질문이어야 합니다.
질문만 반환하고 다른 설명은 하지 마세요.`, res.GeneratedQuery, cat.name)

	question, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("question generation failed", zap.Error(err))
		return
	}
	question = strings.TrimSpace(question)

	hint := &route.Location{City: res.City, Region: res.District}
	qc, err := s.pipeline.Process(ctx, question, hint)
	if err != nil {
		s.logger.Warn("generated question processing failed",
			zap.String("question", question), zap.Error(err))
		return
	}

	res.Response = formatResponse(qc)
}

func formatResponse(qc *route.Context) *QueryResponse {
	if qc.UsedFallback {
		return &QueryResponse{Fallback: true, Content: qc.Answer}
	}
	hits := qc.Hits
	if len(hits) > 3 {
		hits = hits[:3]
	}
	previews := make([]Preview, 0, len(hits))
	for _, h := range hits {
		previews = append(previews, Preview{
			Title:    h.Title(),
			Category: h.Category(),
			Content:  trim(h.Content()),
		})
	}
	return &QueryResponse{Previews: previews}
}

func trim(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
