// Package cache provides a Redis-backed embedding cache that wraps any
// ports.EmbeddingService.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// Verify interface compliance
var _ ports.EmbeddingService = (*EmbeddingCache)(nil)

const keyPrefix = "embedding:"

// EmbeddingCache serves repeated texts from Redis and forwards misses to the
// wrapped embedder. Redis failures degrade to uncached calls.
type EmbeddingCache struct {
	inner     ports.EmbeddingService
	client    *redis.Client
	namespace string // usually "<provider>:<model>"
	ttl       time.Duration
	logger    *slog.Logger
}

// NewEmbeddingCache wraps inner. A zero ttl keeps entries forever.
func NewEmbeddingCache(inner ports.EmbeddingService, client *redis.Client, namespace string, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{
		inner:     inner,
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    slog.Default().With("component", "embedding-cache"),
	}
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text or computes and stores it.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch looks up all texts with one MGET and embeds only the misses.
func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	var missIdx []int

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("cache lookup failed", "error", err)
		vals = make([]interface{}, len(keys))
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		vec, err := decodeVector([]byte(s))
		if err != nil {
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missIdx) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(fresh), len(missIdx))
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}

	c.logger.Debug("embedded batch", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
