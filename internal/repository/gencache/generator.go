// Package gencache caches deterministic language-model sub-task results
// (classification, place resolution) in a key-value store.
package gencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/db"
)

// generator is the inner provider interface.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// store is the consumer interface for the generation cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedGenerator caches model completions keyed by prompt hash. Only
// suitable for prompts whose answer should be stable across calls; the
// free-form answer path bypasses this decorator.
type CachedGenerator struct {
	inner      generator
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner generator,
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGenerator {
	return &CachedGenerator{
		inner:      inner,
		store:      s,
		keyPrefix:  keyPrefix + "gen_cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Generate returns a cached completion or calls the inner generator.
func (c *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.cacheKey(prompt)

	if text, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return text, nil
	}

	c.incCache("miss")

	text, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	c.putToCache(ctx, key, text)
	return text, nil
}

func (c *CachedGenerator) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedGenerator) cacheKey(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedGenerator) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedGenerator) putToCache(ctx context.Context, key string, text string) {
	if err := c.store.SetWithTTL(ctx, key, []byte(text), c.ttl); err != nil {
		c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
	}
}
