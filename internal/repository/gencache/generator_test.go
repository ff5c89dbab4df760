package gencache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/db"
)

type mockGenerator struct {
	calls int
	text  string
	err   error
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.setKeys = append(m.setKeys, key)
	return nil
}

func TestCachedGenerator_MissThenHit(t *testing.T) {
	inner := &mockGenerator{text: `{"city":"서울특별시","district":"강남구"}`}
	store := newMockStore()
	cached := New(inner, store, "silverpath:", time.Hour, nil, zap.NewNop())

	got, err := cached.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != inner.text {
		t.Errorf("Generate() = %q, want %q", got, inner.text)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}

	// Second call served from cache.
	got, err = cached.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != inner.text {
		t.Errorf("cached Generate() = %q, want %q", got, inner.text)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (cache hit)", inner.calls)
	}
}

func TestCachedGenerator_StoreErrorsDoNotFail(t *testing.T) {
	inner := &mockGenerator{text: "answer"}
	store := newMockStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	cached := New(inner, store, "silverpath:", time.Hour, nil, zap.NewNop())

	got, err := cached.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "answer" {
		t.Errorf("Generate() = %q, want %q", got, "answer")
	}
}

func TestCachedGenerator_InnerErrorPropagates(t *testing.T) {
	wantErr := errors.New("model down")
	inner := &mockGenerator{err: wantErr}
	cached := New(inner, newMockStore(), "silverpath:", time.Hour, nil, zap.NewNop())

	_, err := cached.Generate(context.Background(), "prompt")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestCachedGenerator_KeyPrefix(t *testing.T) {
	inner := &mockGenerator{text: "x"}
	store := newMockStore()
	cached := New(inner, store, "silverpath:", time.Hour, nil, zap.NewNop())

	if _, err := cached.Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(store.setKeys) != 1 {
		t.Fatalf("set keys = %v, want 1 entry", store.setKeys)
	}
	const wantPrefix = "silverpath:gen_cache:"
	if got := store.setKeys[0]; len(got) <= len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Errorf("cache key %q lacks prefix %q", got, wantPrefix)
	}
}
