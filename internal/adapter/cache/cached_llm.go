package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"go.uber.org/zap"

	"repolens/internal/logging"
	"repolens/internal/port"
)

var _ port.LLM = (*CachedLLM)(nil)

// CachedLLM answers repeated prompts from its tiers before calling the
// wrapped model. Tiers are consulted in order; a hit in a later tier is
// copied into the earlier ones.
type CachedLLM struct {
	llm    port.LLM
	tiers  []port.CompletionCache
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedLLM(llm port.LLM, logger *zap.Logger, tiers ...port.CompletionCache) *CachedLLM {
	return &CachedLLM{llm: llm, tiers: tiers, logger: logging.OrNop(logger)}
}

// Key digests everything that determines a reply.
func Key(model, system, prompt string) string {
	h := sha256.New()
	for _, part := range []string{model, system, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedLLM) ModelName() string { return c.llm.ModelName() }

func (c *CachedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *CachedLLM) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	key := Key(c.llm.ModelName(), system, prompt)

	for i, tier := range c.tiers {
		if value, ok := tier.Get(key); ok {
			c.hits.Add(1)
			for _, earlier := range c.tiers[:i] {
				_ = earlier.Put(key, value)
			}
			return value, nil
		}
	}
	c.misses.Add(1)

	value, err := c.llm.CompleteWithSystem(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	for _, tier := range c.tiers {
		if err := tier.Put(key, value); err != nil {
			c.logger.Warn("failed to cache completion", zap.Error(err))
		}
	}
	return value, nil
}

// Stats returns hit and miss counts since construction.
func (c *CachedLLM) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
