package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesrag/internal/vectorstore/memory"
)

type funcEmbedder struct {
	calls atomic.Int64
	fn    func(text string) []float64
}

func (f *funcEmbedder) Embed(_ context.Context, text, _ string) []float64 {
	f.calls.Add(1)
	return f.fn(text)
}

func lengthEmbedder() *funcEmbedder {
	return &funcEmbedder{fn: func(text string) []float64 {
		return []float64{float64(len(text)), 1}
	}}
}

func TestBuild_EmbedsAndCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	chunks := []string{"a", "bb", "ccc"}
	emb := lengthEmbedder()

	store, err := Build(context.Background(), chunks, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.Equal(t, chunks, store.Chunks())
	assert.Equal(t, []float64{2, 1}, store.Embedding(1))
	assert.EqualValues(t, 3, emb.calls.Load())
	assert.FileExists(t, path)

	again, err := Build(context.Background(), chunks, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.EqualValues(t, 3, emb.calls.Load(), "cache hit must not embed")
	assert.Equal(t, chunks, again.Chunks())
	assert.Equal(t, []float64{3, 1}, again.Embedding(2))
}

func TestBuild_StaleCacheIsRebuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	emb := lengthEmbedder()

	_, err := Build(context.Background(), []string{"old"}, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)

	store, err := Build(context.Background(), []string{"new", "chunks"}, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "chunks"}, store.Chunks())
	assert.EqualValues(t, 3, emb.calls.Load())
}

func TestBuild_CorruptCacheIsRebuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	require.NoError(t, os.WriteFile(path, []byte("corrupt"), 0o644))
	emb := lengthEmbedder()

	store, err := Build(context.Background(), []string{"x"}, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.EqualValues(t, 1, emb.calls.Load())
}

func TestBuild_FailedEmbeddingKeepsSlot(t *testing.T) {
	emb := &funcEmbedder{fn: func(text string) []float64 {
		if text == "bad" {
			return nil
		}
		return []float64{1, 2, 3}
	}}

	store, err := Build(context.Background(), []string{"good", "bad", "good again"}, emb, "tok", Options{})
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())
	assert.Equal(t, make([]float64, DefaultFallbackDim), store.Embedding(1))
	assert.Equal(t, []float64{1, 2, 3}, store.Embedding(2))

	small, err := Build(context.Background(), []string{"bad"}, emb, "tok", Options{FallbackDim: 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, small.Embedding(0))
}

func TestBuild_AllFailedIsNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	failing := &funcEmbedder{fn: func(string) []float64 { return nil }}

	store, err := Build(context.Background(), []string{"a", "b"}, failing, "bad-token", Options{CacheFile: path})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.NoFileExists(t, path)

	emb := lengthEmbedder()
	store, err = Build(context.Background(), []string{"a", "b"}, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.EqualValues(t, 2, emb.calls.Load())
	assert.Equal(t, []float64{1, 1}, store.Embedding(0))
	assert.FileExists(t, path)
}

func TestBuild_ZeroVectorCacheIsRebuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	chunks := []string{"a", "b"}
	zeros, err := memory.New(chunks, [][]float64{make([]float64, 3), make([]float64, 3)})
	require.NoError(t, err)
	require.NoError(t, zeros.Save(path))

	emb := lengthEmbedder()
	store, err := Build(context.Background(), chunks, emb, "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.EqualValues(t, 2, emb.calls.Load())
	assert.Equal(t, []float64{1, 1}, store.Embedding(1))
}

func TestBuild_WorkersPreserveOrder(t *testing.T) {
	chunks := make([]string, 50)
	for i := range chunks {
		chunks[i] = strings.Repeat("x", i+1)
	}
	emb := &funcEmbedder{fn: func(text string) []float64 {
		// Later chunks finish first.
		time.Sleep(time.Duration(60-len(text)) * 100 * time.Microsecond)
		return []float64{float64(len(text))}
	}}

	store, err := Build(context.Background(), chunks, emb, "tok", Options{Workers: 8})
	require.NoError(t, err)
	for i := range chunks {
		assert.Equal(t, []float64{float64(i + 1)}, store.Embedding(i), "index "+strconv.Itoa(i))
	}
}

func TestBuild_SaveFailureIsSwallowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", DefaultCacheFile)

	store, err := Build(context.Background(), []string{"a"}, lengthEmbedder(), "tok", Options{CacheFile: path})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.NoFileExists(t, path)
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, []string{"a", "b"}, lengthEmbedder(), "tok", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoveCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, RemoveCache(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, RemoveCache(path))
	assert.NoError(t, RemoveCache(""))
}
