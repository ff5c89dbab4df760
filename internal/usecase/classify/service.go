// Package classify picks the vector-index namespace a query should be
// routed to, or decides that none fits.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/metrics"
)

// minConfidence is the admission gate: anything the model proposes below
// this is treated as "no namespace fits".
const minConfidence = 0.30

const fastPathConfidence = 0.95

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// fastPath routes a known-critical intent without a model call. These
// intents are common and unambiguous, and must not be misrouted by model
// variance.
type fastPath struct {
	keywords     []string
	namespaceKey string
	reasoning    string
}

var fastPaths = []fastPath{
	{
		keywords:     []string{"눈 검사", "시력", "안과", "눈 건강", "건강검진"},
		namespaceKey: "health_center",
		reasoning:    "안과 진료 및 검진 키워드 감지",
	},
	{
		keywords:     []string{"운동", "스트레칭", "체조", "홈트"},
		namespaceKey: "workout",
		reasoning:    "운동 관련 키워드 감지",
	},
}

// Service classifies queries against the namespace catalog.
type Service struct {
	catalog namespace.Catalog
	gen     Generator
	logger  *zap.Logger
}

// NewService creates a classifier.
func NewService(catalog namespace.Catalog, gen Generator, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, gen: gen, logger: logger}
}

// Classify resolves a namespace for the query. When a location is already
// resolved, the model only picks a topic category and the namespace key is
// composed and validated against the catalog, which rules out hallucinated
// keys by construction. A miss is a value, never an error.
func (s *Service) Classify(ctx context.Context, query string, loc *route.Location) route.Classification {
	if c, ok := s.matchFastPath(query); ok {
		metrics.ClassificationsTotal.WithLabelValues("fast", "hit").Inc()
		return c
	}

	if loc != nil && loc.City != "" {
		if c, ok := s.classifyComposed(ctx, query, loc); ok {
			metrics.ClassificationsTotal.WithLabelValues("composed", "hit").Inc()
			return c
		}
		metrics.ClassificationsTotal.WithLabelValues("composed", "miss").Inc()
	}

	c := s.classifyGeneral(ctx, query)
	outcome := "hit"
	if c.Miss() {
		outcome = "miss"
	}
	metrics.ClassificationsTotal.WithLabelValues("general", outcome).Inc()
	return c
}

func (s *Service) matchFastPath(query string) (route.Classification, bool) {
	for _, fp := range fastPaths {
		for _, kw := range fp.keywords {
			if strings.Contains(query, kw) {
				return route.Classification{
					NamespaceKey: fp.namespaceKey,
					Confidence:   fastPathConfidence,
					Reasoning:    fp.reasoning,
					FastPath:     true,
				}, true
			}
		}
	}
	return route.Classification{}, false
}

type categoryPayload struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// classifyComposed asks the model only for a topic category and composes
// the namespace key through the catalog.
func (s *Service) classifyComposed(ctx context.Context, query string, loc *route.Location) (route.Classification, bool) {
	categories := s.categoriesOf(loc.City)
	if len(categories) == 0 {
		return route.Classification{}, false
	}

	var listing strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&listing, "- %s: %s\n", c.Category(), c.Description())
	}

	prompt := fmt.Sprintf(`사용자 질문이 어떤 주제 카테고리에 해당하는지 판단하세요.

### 카테고리 목록:
%s
### 사용자 질문:
%s

### 응답 형식:
JSON 형식으로만 응답하세요.
예시: {"category": "job", "confidence": 0.9, "reasoning": "선택 이유"}
어떤 카테고리에도 맞지 않으면 confidence를 0.3 미만으로 설정하세요.`, listing.String(), query)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("category classification call failed", zap.Error(err))
		return route.Classification{}, false
	}

	var payload categoryPayload
	if !decodePayload(text, &payload) {
		s.logger.Debug("category classification returned unparsable text", zap.String("text", text))
		return route.Classification{}, false
	}
	if payload.Confidence < minConfidence {
		return route.Classification{}, false
	}

	ns, ok := s.catalog.KeyFor(loc.City, payload.Category)
	if !ok {
		return route.Classification{}, false
	}
	return route.Classification{
		NamespaceKey: ns.Key(),
		Confidence:   payload.Confidence,
		Reasoning:    payload.Reasoning,
	}, true
}

// categoriesOf returns one namespace per topic category available for the city.
func (s *Service) categoriesOf(city string) []namespace.Namespace {
	var out []namespace.Namespace
	seen := map[string]struct{}{}
	for _, ns := range s.catalog.All() {
		if ns.City() != city || ns.Category() == "" {
			continue
		}
		if _, dup := seen[ns.Category()]; dup {
			continue
		}
		seen[ns.Category()] = struct{}{}
		out = append(out, ns)
	}
	return out
}

type namespacePayload struct {
	Namespace  string  `json:"namespace"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// classifyGeneral is the free classification path over the whole catalog.
func (s *Service) classifyGeneral(ctx context.Context, query string) route.Classification {
	descriptions := make(map[string]string, len(s.catalog.All()))
	for _, ns := range s.catalog.All() {
		descriptions[ns.Key()] = ns.Description()
	}
	catalogJSON, err := json.MarshalIndent(descriptions, "", "  ")
	if err != nil {
		return route.Classification{Reasoning: "catalog encoding failed"}
	}

	prompt := fmt.Sprintf(`당신은 사용자 질문에 가장 적합한 namespace를 선택하는 시스템입니다.
다음 정보를 참고하여 주어진 질문이 어떤 namespace에 가장 적합한지 판단하세요.

### Namespace 정보:
%s

### 사용자 질문:
%s

### 응답 형식:
JSON 형식으로 응답해 주세요. 가장 적합한 namespace 하나와 그 선택에 대한 confidence score(0.0~1.0)를 제공하세요.
예시: {"namespace": "namespace_key", "confidence": 0.95, "reasoning": "이 namespace를 선택한 이유"}

항상 정확히 하나의 namespace만 선택하세요. 어떤 namespace에도 맞지 않는다면 confidence를 0.3 미만으로 설정하고 namespace를 null로 지정하세요.`,
		catalogJSON, query)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("namespace classification call failed", zap.Error(err))
		return route.Classification{Reasoning: "model call failed"}
	}

	var payload namespacePayload
	if !decodePayload(text, &payload) {
		s.logger.Debug("namespace classification returned unparsable text", zap.String("text", text))
		return route.Classification{Reasoning: "parse failed"}
	}

	// Confidence clamp: nothing below the gate passes, whatever the model says.
	if payload.Confidence < minConfidence {
		return route.Classification{Confidence: payload.Confidence, Reasoning: payload.Reasoning}
	}
	if _, ok := s.catalog.Get(payload.Namespace); !ok {
		return route.Classification{Confidence: payload.Confidence, Reasoning: "unknown namespace proposed"}
	}
	return route.Classification{
		NamespaceKey: payload.Namespace,
		Confidence:   payload.Confidence,
		Reasoning:    payload.Reasoning,
	}
}

// decodePayload tries strict JSON first, then recovers an object embedded
// in surrounding prose.
func decodePayload(text string, v any) bool {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return true
	}
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return false
	}
	return json.Unmarshal([]byte(match), v) == nil
}
