package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder memoizes the vectors of an underlying Embedder per text.
//
// Only texts missing from the cache are sent to the underlying Embedder, in a single batch.
type CachedEmbedder struct {
	next  Embedder
	cache *gocache.Cache
}

func NewCachedEmbedder(next Embedder, ttl time.Duration) *CachedEmbedder {
	cleanupInterval := 2 * ttl //nolint:mnd // purge expired entries now and then
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanupInterval = 0
	}
	return &CachedEmbedder{
		next:  next,
		cache: gocache.New(ttl, cleanupInterval),
	}
}

func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	var (
		missing     []string
		missingIdxs [][]int
		pending     = map[string]int{}
	)
	for i, text := range texts {
		key := cacheKey(text)
		if v, found := c.cache.Get(key); found {
			out[i] = v.([]float32) //nolint:forcetypeassert // only this type is stored
			continue
		}
		// Duplicate texts in one batch are embedded once.
		if j, ok := pending[key]; ok {
			missingIdxs[j] = append(missingIdxs[j], i)
			continue
		}
		pending[key] = len(missing)
		missing = append(missing, text)
		missingIdxs = append(missingIdxs, []int{i})
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err //nolint:wrapcheck // the cache is transparent
	}
	if len(vectors) != len(missing) {
		return nil, errors.Wrap(ErrEmbeddingFailed, "unexpected number of vectors",
			slog.Int("want", len(missing)), slog.Int("got", len(vectors)))
	}
	for j, v := range vectors {
		c.cache.SetDefault(cacheKey(missing[j]), v)
		for _, i := range missingIdxs[j] {
			out[i] = v
		}
	}
	return out, nil
}

// Close closes the underlying Embedder if it holds resources.
func (c *CachedEmbedder) Close() error {
	c.cache.Flush()
	if p, ok := c.next.(Provider); ok {
		return p.Close() //nolint:wrapcheck // the cache is transparent
	}
	return nil
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
