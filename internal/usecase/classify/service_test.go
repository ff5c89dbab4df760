package classify

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/catalog"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
)

type mockGenerator struct {
	calls    int
	response string
	err      error
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newTestService(t *testing.T, gen Generator) *Service {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return NewService(cat, gen, zap.NewNop())
}

func TestClassify_FastPathEyeCare(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "눈 검사 받고 싶어요", nil)
	if c.NamespaceKey != "health_center" {
		t.Errorf("namespace = %q, want health_center", c.NamespaceKey)
	}
	if c.Confidence != 0.95 || !c.FastPath {
		t.Errorf("confidence = %v fastpath = %v, want 0.95/true", c.Confidence, c.FastPath)
	}
	if gen.calls != 0 {
		t.Errorf("model calls = %d, want 0 on fast path", gen.calls)
	}
}

func TestClassify_FastPathWorkout(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "집에서 할 수 있는 스트레칭 알려줘", nil)
	if c.NamespaceKey != "workout" || !c.FastPath {
		t.Errorf("classification = %+v, want workout fast path", c)
	}
	if gen.calls != 0 {
		t.Errorf("model calls = %d, want 0 on fast path", gen.calls)
	}
}

func TestClassify_ComposedPathWithLocation(t *testing.T) {
	gen := &mockGenerator{response: `{"category": "job", "confidence": 0.9, "reasoning": "일자리 질문"}`}
	svc := newTestService(t, gen)

	loc := &route.Location{City: "서울특별시", Region: "강남구"}
	c := svc.Classify(context.Background(), "강남구 노인 일자리", loc)
	if c.NamespaceKey != "seoul_job" {
		t.Errorf("namespace = %q, want seoul_job composed from city and category", c.NamespaceKey)
	}
	if c.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", c.Confidence)
	}
}

func TestClassify_ComposedPathUnknownCategoryFallsThrough(t *testing.T) {
	// Category path proposes something outside the catalog; the general
	// path then runs with the same mock response, which is also invalid,
	// so the result is a miss rather than a made-up key.
	gen := &mockGenerator{response: `{"category": "shopping", "confidence": 0.8}`}
	svc := newTestService(t, gen)

	loc := &route.Location{City: "서울특별시", Region: "강남구"}
	c := svc.Classify(context.Background(), "강남구 쇼핑", loc)
	if !c.Miss() {
		t.Errorf("classification = %+v, want miss", c)
	}
	if gen.calls != 2 {
		t.Errorf("model calls = %d, want 2 (composed then general)", gen.calls)
	}
}

func TestClassify_GeneralPath(t *testing.T) {
	gen := &mockGenerator{response: `{"namespace": "kk_culture", "confidence": 0.82, "reasoning": "경기 문화"}`}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "경기도 문화 프로그램 뭐 있어", nil)
	if c.NamespaceKey != "kk_culture" || c.Confidence != 0.82 {
		t.Errorf("classification = %+v, want kk_culture/0.82", c)
	}
}

func TestClassify_ConfidenceClamp(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantMiss bool
	}{
		{"below gate", `{"namespace": "seoul_job", "confidence": 0.29}`, true},
		{"at gate", `{"namespace": "seoul_job", "confidence": 0.30}`, false},
		{"zero", `{"namespace": "seoul_job", "confidence": 0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &mockGenerator{response: tt.response})
			c := svc.Classify(context.Background(), "뭔가 질문", nil)
			if c.Miss() != tt.wantMiss {
				t.Errorf("Miss() = %v, want %v (confidence clamp)", c.Miss(), tt.wantMiss)
			}
		})
	}
}

func TestClassify_UnknownNamespaceRejected(t *testing.T) {
	gen := &mockGenerator{response: `{"namespace": "busan_job", "confidence": 0.9}`}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "부산 일자리", nil)
	if !c.Miss() {
		t.Errorf("classification = %+v, want miss for key outside catalog", c)
	}
}

func TestClassify_JSONRecoveredFromProse(t *testing.T) {
	gen := &mockGenerator{response: "판단 결과입니다:\n{\"namespace\": \"seoul_facility\", \"confidence\": 0.75, \"reasoning\": \"복지시설\"}"}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "복지관 어디 있어", nil)
	if c.NamespaceKey != "seoul_facility" {
		t.Errorf("namespace = %q, want seoul_facility recovered from prose", c.NamespaceKey)
	}
}

func TestClassify_ModelFailureIsAMiss(t *testing.T) {
	gen := &mockGenerator{err: errors.New("network down")}
	svc := newTestService(t, gen)

	c := svc.Classify(context.Background(), "아무 질문", nil)
	if !c.Miss() {
		t.Errorf("classification = %+v, want miss on model failure", c)
	}
}
