package route

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain/route"
	"github.com/silverpath-kr/silverpath/internal/metrics"
)

// apologyAnswer is returned when even the fallback model call fails.
const apologyAnswer = "죄송합니다. 지금은 답변을 드릴 수 없습니다. 잠시 후 다시 시도해 주세요."

// PromptAugmenter rewrites the raw query into the prompt sent to the model
// on the fallback path.
type PromptAugmenter func(query string) string

var weatherKeywords = []string{
	"날씨", "기온", "강수", "비", "눈", "미세먼지", "황사", "자외선", "바람", "기상",
}

// weatherSnapshot is a fixed illustrative snapshot, not live data. Swap the
// augmenter to wire a real weather source.
const weatherSnapshot = `현재 서울의 날씨는 맑고, 기온은 24°C이며, 습도는 45%입니다.
미세먼지는 '보통' 수준이고, 바람은 북서풍 3m/s로 불고 있습니다.
오늘의 최고 기온은 26°C, 최저 기온은 15°C로 예상됩니다.
내일은 흐리고 비가 올 수 있으며, 최고 기온 22°C, 최저 기온 14°C가 예상됩니다.`

// DefaultAugment steers weather questions to a canned snapshot and passes
// everything else through as a direct-answer prompt.
func DefaultAugment(query string) string {
	for _, kw := range weatherKeywords {
		if strings.Contains(query, kw) {
			return fmt.Sprintf(`사용자가 날씨에 관한 다음 질문을 했습니다:
"%s"

날씨 정보에 대해 가능한 한 구체적이고 유용한 답변을 제공해 주세요.
%s

위 정보를 바탕으로 사용자 질문에 맞는 구체적인 답변을 제공해 주세요.`, query, weatherSnapshot)
		}
	}
	return fmt.Sprintf("사용자 질문에 대해 직접 답변해주세요:\n%s", query)
}

// fallback answers the query with the generative model and tags the context
// so callers know no structured data backed the answer. Debug fields
// (namespace, confidence, scope) already on the context stay untouched.
func (s *Service) fallback(ctx context.Context, qc *route.Context) {
	qc.UsedFallback = true
	metrics.FallbacksTotal.Inc()

	text, err := s.deps.Answerer.Generate(ctx, s.deps.Augment(qc.RawQuery))
	if err != nil {
		s.logger.Warn("fallback answer failed", zap.Error(err))
		text = apologyAnswer
	}

	qc.Answer = text
	qc.Hits = append(qc.Hits, route.NewHit("llm-response", 1.0, "AI 응답", "일반 정보", text))
}
