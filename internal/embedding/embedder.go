package embedding

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"notesrag/internal/logger"
)

// DefaultCacheSize bounds the number of memoized embeddings.
const DefaultCacheSize = 1000

// Backend fetches an embedding from a remote service.
type Backend interface {
	Name() string
	Embed(ctx context.Context, text, credential string) ([]float64, error)
}

type cacheKey struct {
	text       string
	credential string
}

// flightKey is unambiguous for any pair of strings.
func (k cacheKey) flightKey() string {
	return strconv.Itoa(len(k.credential)) + ":" + k.credential + k.text
}

// Client memoizes backend embeddings in a bounded LRU keyed by the exact
// (text, credential) pair. Backend failures are downgraded to an empty
// vector, and that empty result is memoized like any other, so a key
// reaches the backend at most once until it is evicted. Concurrent misses
// on one key share a single request. Client is safe for concurrent use.
type Client struct {
	backend Backend
	cache   *lru.Cache[cacheKey, []float64]
	flight  singleflight.Group
	log     *zap.Logger
}

// NewClient wraps backend with an LRU of the given capacity. A
// non-positive size falls back to DefaultCacheSize.
func NewClient(backend Backend, cacheSize int, log *zap.Logger) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []float64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{backend: backend, cache: cache, log: logger.OrNop(log)}, nil
}

// Embed returns the embedding of text, or nil when the backend fails.
func (c *Client) Embed(ctx context.Context, text, credential string) []float64 {
	key := cacheKey{text: text, credential: credential}
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	res, _, _ := c.flight.Do(key.flightKey(), func() (any, error) {
		// A caller that lost the race to a finished flight finds the entry here.
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		v := c.fetch(ctx, key)
		// A cancelled caller says nothing about the key itself.
		if v != nil || ctx.Err() == nil {
			c.cache.Add(key, v)
		}
		return v, nil
	})
	return res.([]float64)
}

func (c *Client) fetch(ctx context.Context, key cacheKey) []float64 {
	v, err := c.backend.Embed(ctx, key.text, key.credential)
	if err != nil {
		c.log.Warn("embedding request failed",
			zap.String("backend", c.backend.Name()),
			zap.Int("text_len", len(key.text)),
			zap.Error(err))
		return nil
	}
	if len(v) == 0 {
		c.log.Warn("embedding backend returned empty vector", zap.String("backend", c.backend.Name()))
		return nil
	}
	return v
}

// Len reports how many embeddings are currently memoized, empty ones included.
func (c *Client) Len() int { return c.cache.Len() }
