// Package cache memoizes text generation results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/metrics"
	"reasoncare-orchestrator/internal/invoker"
)

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
}

type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

// Generator wraps a TextGenerator. Store failures degrade to a direct call.
type Generator struct {
	next   invoker.TextGenerator
	store  Store
	config Config
	logger logger.Logger
}

func New(next invoker.TextGenerator, store Store, cfg Config, log logger.Logger) *Generator {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Generator{
		next:   next,
		store:  store,
		config: cfg,
		logger: logger.ForComponent(log, "generation-cache"),
	}
}

func (g *Generator) Generate(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	key := Key(g.config.KeyPrefix, modelID, prompt, maxTokens)

	cached, found, err := g.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		g.logger.Warn("cache lookup failed", map[string]interface{}{"modelId": modelID, "error": err.Error()})
	case found:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		g.logger.Debug("cache hit", map[string]interface{}{"modelId": modelID})
		return cached, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	text, err := g.next.Generate(ctx, modelID, prompt, maxTokens)
	if err != nil {
		return "", err
	}

	if err := g.store.Set(ctx, key, text, g.config.TTL); err != nil {
		g.logger.Warn("cache store failed", map[string]interface{}{"modelId": modelID, "error": err.Error()})
	}
	return text, nil
}

// Key derives the cache key from everything that influences the generated text.
func Key(prefix, modelID, prompt string, maxTokens int) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(maxTokens)))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return prefix + hex.EncodeToString(h.Sum(nil))
}
