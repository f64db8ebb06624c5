package vectorstore

import (
	"context"
	"errors"
	"os"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"notesrag/internal/domain"
	"notesrag/internal/logger"
	"notesrag/internal/vectorstore/memory"
)

const (
	DefaultCacheFile    = "vectorstore.bin"
	DefaultFallbackDim  = 384
	progressLogInterval = 10
)

// Options controls how Build embeds chunks and where it caches the result.
type Options struct {
	// CacheFile is read before building and written after; empty disables caching.
	CacheFile string
	// FallbackDim is the length of the zero vector used for failed embeddings.
	FallbackDim int
	// Workers bounds concurrent embedding requests. 1 embeds sequentially.
	Workers int
	Logger  *zap.Logger
}

// Build returns a store for chunks, reusing the cache file when it holds
// exactly these chunks and at least one real embedding. Otherwise every
// chunk is embedded, failed embeddings are replaced by a zero vector so
// alignment is kept, and the result is saved best-effort. A build in which
// every embedding failed is not saved.
func Build(ctx context.Context, chunks []string, emb domain.Embedder, credential string, opts Options) (*memory.Store, error) {
	log := logger.OrNop(opts.Logger)
	if opts.FallbackDim <= 0 {
		opts.FallbackDim = DefaultFallbackDim
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if opts.CacheFile != "" {
		cached, err := loadCache(opts.CacheFile, chunks)
		switch {
		case err == nil:
			log.Info("loaded cached vector store", zap.String("path", opts.CacheFile), zap.Int("chunks", cached.Len()))
			return cached, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			log.Info("ignoring vector store cache", zap.String("path", opts.CacheFile), zap.Error(err))
		}
	}

	log.Info("embedding chunks", zap.Int("chunks", len(chunks)), zap.Int("workers", opts.Workers))
	embeddings := make([][]float64, len(chunks))
	var embedded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, chunk := range chunks {
		if i%progressLogInterval == 0 {
			log.Debug("processing chunk", zap.Int("index", i), zap.Int("total", len(chunks)))
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v := emb.Embed(gctx, chunk, credential)
			if len(v) == 0 {
				v = make([]float64, opts.FallbackDim)
			} else {
				embedded.Add(1)
			}
			embeddings[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store, err := memory.New(chunks, embeddings)
	if err != nil {
		return nil, err
	}
	switch {
	case opts.CacheFile == "":
	case embedded.Load() == 0 && len(chunks) > 0:
		log.Warn("every embedding failed, not caching vector store", zap.Int("chunks", len(chunks)))
	default:
		if err := store.Save(opts.CacheFile); err != nil {
			log.Warn("could not cache vector store", zap.String("path", opts.CacheFile), zap.Error(err))
		} else {
			log.Info("vector store cached", zap.String("path", opts.CacheFile))
		}
	}
	return store, nil
}

var (
	// errStaleCache marks a cache file built from a different corpus.
	errStaleCache = errors.New("cached chunks do not match the library")
	// errFallbackCache marks a cache file holding only fallback vectors.
	errFallbackCache = errors.New("cached embeddings are all zero")
)

func loadCache(path string, chunks []string) (*memory.Store, error) {
	store, err := memory.Load(path)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(store.Chunks(), chunks) {
		return nil, errStaleCache
	}
	if store.Len() > 0 && allZero(store) {
		return nil, errFallbackCache
	}
	return store, nil
}

func allZero(store *memory.Store) bool {
	for i := range store.Len() {
		for _, x := range store.Embedding(i) {
			if x != 0 {
				return false
			}
		}
	}
	return true
}

// RemoveCache deletes the cache file. A missing file is not an error.
func RemoveCache(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
