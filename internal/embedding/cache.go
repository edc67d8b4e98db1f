package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cacheTTL bounds how long a cached vector stays valid. Re-indexing the
// same file within the window reuses the stored vectors instead of
// hitting the embedding backend again.
const cacheTTL = 24 * time.Hour

// CachedProvider wraps a Provider with a Redis cache keyed by model and
// content hash. Cache failures degrade to the underlying provider.
type CachedProvider struct {
	inner  Provider
	model  string
	rdb    *redis.Client
	logger *zap.Logger
}

// NewCachedProvider connects to Redis at redisURL and wraps inner. The
// model name is part of the cache key so switching embedding models
// never serves stale vectors.
func NewCachedProvider(inner Provider, model, redisURL string, logger *zap.Logger) (*CachedProvider, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("embedding cache: connect redis: %w", err)
	}
	return &CachedProvider{inner: inner, model: model, rdb: rdb, logger: logger}, nil
}

func (c *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns cached vectors where present and embeds only the misses.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		raw, err := c.rdb.Get(ctx, c.key(text)).Bytes()
		if err == nil {
			var vec []float32
			if json.Unmarshal(raw, &vec) == nil && len(vec) > 0 {
				out[i] = vec
				continue
			}
		} else if err != redis.Nil {
			c.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("embedding cache: provider returned %d vectors for %d texts", len(vecs), len(missTexts))
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			if raw, err := json.Marshal(vec); err == nil {
				if err := c.rdb.Set(ctx, c.key(missTexts[j]), raw, cacheTTL).Err(); err != nil {
					c.logger.Warn("embedding cache write failed", zap.Error(err))
				}
			}
		}
	}

	return out, nil
}

// Dimension reports the wrapped provider's dimension.
func (c *CachedProvider) Dimension() int {
	return c.inner.Dimension()
}

// Close releases the Redis connection.
func (c *CachedProvider) Close() error {
	return c.rdb.Close()
}
