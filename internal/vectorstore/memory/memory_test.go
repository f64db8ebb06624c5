package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SimilaritySearchScenario(t *testing.T) {
	s, err := New([]string{"x", "y", "z"}, [][]float64{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "z"}, s.SimilaritySearch([]float64{1, 0}, 2))
}

func TestStore_SimilaritySearchBounds(t *testing.T) {
	s, err := New([]string{"a", "b"}, [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)

	assert.Len(t, s.SimilaritySearch([]float64{1, 1}, 3), 2)
	assert.Len(t, s.SimilaritySearch([]float64{1, 1}, 1), 1)
	assert.Empty(t, s.SimilaritySearch([]float64{1, 1}, 0))

	empty, err := New(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.SimilaritySearch([]float64{1}, 3))
}

func TestStore_TiesKeepIndexOrder(t *testing.T) {
	chunks := []string{"zero-a", "same-1", "zero-b", "same-2", "same-3"}
	embs := [][]float64{{0, 0}, {2, 0}, {0, 0}, {5, 0}, {1, 0}}
	s, err := New(chunks, embs)
	require.NoError(t, err)

	want := []string{"same-1", "same-2", "same-3", "zero-a", "zero-b"}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, s.SimilaritySearch([]float64{3, 0}, 5))
	}
	// A zero query scores every chunk 0, so the order is the insertion order.
	assert.Equal(t, chunks[:3], s.SimilaritySearch([]float64{0, 0}, 3))
}

func TestStore_RejectsMisalignedInput(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestStore_CopiesInput(t *testing.T) {
	chunks := []string{"a"}
	embs := [][]float64{{1, 2}}
	s, err := New(chunks, embs)
	require.NoError(t, err)

	chunks[0] = "changed"
	embs[0][0] = 99
	assert.Equal(t, []string{"a"}, s.Chunks())
	assert.Equal(t, []float64{1, 2}, s.Embedding(0))
}

func TestCosineSimilarity(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity(v, []float64{0, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{0, 0}))
	assert.InDelta(t, 1/math.Sqrt2, CosineSimilarity([]float64{1, 0}, []float64{1, 1}), 1e-12)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-2, 0}), 1e-12)
}
