package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Generator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen := NewGenerator(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-2.0-flash",
		Timeout: timeout,
		Logger:  zap.NewNop(),
	})
	return gen, server
}

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`))
	}
}

func TestGenerate_ReturnsText(t *testing.T) {
	gen, _ := newTestGenerator(t, completionHandler("안녕하세요"), 5*time.Second)

	text, err := gen.Generate(context.Background(), "인사해주세요")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "안녕하세요" {
		t.Errorf("text: got %q", text)
	}
}

func TestGenerate_TimeoutIsCollaboratorUnavailable(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		completionHandler("늦은 응답")(w, r)
	}
	gen, _ := newTestGenerator(t, slow, 50*time.Millisecond)

	_, err := gen.Generate(context.Background(), "질문")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Errorf("error: got %v, want ErrCollaboratorUnavailable", err)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	empty := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}
	gen, _ := newTestGenerator(t, empty, 5*time.Second)

	_, err := gen.Generate(context.Background(), "질문")
	if !errors.Is(err, domain.ErrMalformedModelResponse) {
		t.Errorf("error: got %v, want ErrMalformedModelResponse", err)
	}
}

func TestGenerate_APIErrorIsCollaboratorUnavailable(t *testing.T) {
	quota := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	}
	gen, _ := newTestGenerator(t, quota, 5*time.Second)

	_, err := gen.Generate(context.Background(), "질문")
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Errorf("error: got %v, want ErrCollaboratorUnavailable", err)
	}
}
