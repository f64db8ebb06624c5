package embedding

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(text, credential string) ([]float64, error)
}

func newStub(fn func(text, credential string) ([]float64, error)) *stubBackend {
	return &stubBackend{calls: make(map[string]int), fn: fn}
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Embed(_ context.Context, text, credential string) ([]float64, error) {
	s.mu.Lock()
	s.calls[text+"|"+credential]++
	s.mu.Unlock()
	return s.fn(text, credential)
}

func (s *stubBackend) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func TestClient_MemoizesByTextAndCredential(t *testing.T) {
	stub := newStub(func(text, _ string) ([]float64, error) {
		return []float64{float64(len(text)), 1}, nil
	})
	c, err := NewClient(stub, 0, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first := c.Embed(ctx, "hello", "tok-a")
	second := c.Embed(ctx, "hello", "tok-a")
	assert.Equal(t, []float64{5, 1}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.total())

	c.Embed(ctx, "hello", "tok-b")
	assert.Equal(t, 2, stub.total())
	assert.Equal(t, 2, c.Len())
}

func TestClient_FailuresAreEmptyAndMemoized(t *testing.T) {
	fail := true
	stub := newStub(func(string, string) ([]float64, error) {
		if fail {
			return nil, errors.New("503 Service Unavailable")
		}
		return []float64{0.5}, nil
	})
	c, err := NewClient(stub, 10, nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Empty(t, c.Embed(ctx, "q", "tok"))
	fail = false
	assert.Empty(t, c.Embed(ctx, "q", "tok"), "the empty result stays until evicted")
	assert.Equal(t, 1, stub.total())
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, []float64{0.5}, c.Embed(ctx, "q", "other-tok"))
	assert.Equal(t, 2, stub.total())
}

func TestClient_EmptyBackendResultIsSoftFailure(t *testing.T) {
	stub := newStub(func(string, string) ([]float64, error) { return []float64{}, nil })
	c, err := NewClient(stub, 10, nil)
	require.NoError(t, err)

	assert.Nil(t, c.Embed(context.Background(), "q", "tok"))
	assert.Nil(t, c.Embed(context.Background(), "q", "tok"))
	assert.Equal(t, 1, stub.total())
}

func TestClient_CancelledFailureIsNotMemoized(t *testing.T) {
	stub := newStub(func(string, string) ([]float64, error) { return nil, context.Canceled })
	c, err := NewClient(stub, 10, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, c.Embed(ctx, "q", "tok"))
	assert.Equal(t, 0, c.Len())
}

func TestClient_ConcurrentMissesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	stub := newStub(func(string, string) ([]float64, error) {
		<-release
		return []float64{1, 2}, nil
	})
	c, err := NewClient(stub, 10, nil)
	require.NoError(t, err)

	const callers = 8
	var started, wg sync.WaitGroup
	started.Add(callers)
	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			started.Done()
			assert.Equal(t, []float64{1, 2}, c.Embed(context.Background(), "dup", "t"))
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, 1, stub.total())
}

func TestClient_EvictsLeastRecentlyUsed(t *testing.T) {
	stub := newStub(func(text, _ string) ([]float64, error) { return []float64{1}, nil })
	c, err := NewClient(stub, 2, nil)
	require.NoError(t, err)
	ctx := context.Background()

	c.Embed(ctx, "a", "t")
	c.Embed(ctx, "b", "t")
	c.Embed(ctx, "a", "t") // a becomes most recent
	c.Embed(ctx, "c", "t") // evicts b
	assert.Equal(t, 3, stub.total())

	c.Embed(ctx, "a", "t")
	assert.Equal(t, 3, stub.total())
	c.Embed(ctx, "b", "t")
	assert.Equal(t, 4, stub.total())
	assert.Equal(t, 2, c.Len())
}

func TestClient_ConcurrentUse(t *testing.T) {
	stub := newStub(func(text, _ string) ([]float64, error) { return []float64{float64(len(text))}, nil })
	c, err := NewClient(stub, DefaultCacheSize, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := strconv.Itoa(i % 8)
			assert.Equal(t, []float64{float64(len(text))}, c.Embed(context.Background(), text, "t"))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
