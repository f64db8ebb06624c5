package memory

import (
	"errors"
	"math"
	"sort"
)

// ErrMisaligned is returned when chunks and embeddings differ in length.
var ErrMisaligned = errors.New("chunks and embeddings length mismatch")

// Store is an immutable in-memory vector store using brute-force cosine
// similarity. embeddings[i] is always the embedding of chunks[i].
type Store struct {
	chunks     []string
	embeddings [][]float64
}

// New builds a store over index-aligned chunks and embeddings. The slices
// are copied so later changes by the caller cannot break alignment.
func New(chunks []string, embeddings [][]float64) (*Store, error) {
	if len(chunks) != len(embeddings) {
		return nil, ErrMisaligned
	}
	s := &Store{
		chunks:     make([]string, len(chunks)),
		embeddings: make([][]float64, len(embeddings)),
	}
	copy(s.chunks, chunks)
	for i, v := range embeddings {
		s.embeddings[i] = append([]float64(nil), v...)
	}
	return s, nil
}

// Len returns the number of stored chunks.
func (s *Store) Len() int { return len(s.chunks) }

// Chunks returns a copy of the stored chunk texts in index order.
func (s *Store) Chunks() []string {
	return append([]string(nil), s.chunks...)
}

// Embedding returns a copy of the embedding at index i.
func (s *Store) Embedding(i int) []float64 {
	return append([]float64(nil), s.embeddings[i]...)
}

// SimilaritySearch returns the texts of the k chunks most similar to query,
// best first. Equal scores keep their original index order.
func (s *Store) SimilaritySearch(query []float64, k int) []string {
	if k <= 0 || len(s.chunks) == 0 {
		return nil
	}
	qnorm := norm(query)
	idxs := make([]int, len(s.embeddings))
	scores := make([]float64, len(s.embeddings))
	for i, emb := range s.embeddings {
		idxs[i] = i
		scores[i] = cosine(query, emb, qnorm, norm(emb))
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = s.chunks[idxs[i]]
	}
	return out
}

// CosineSimilarity is the dot product of a and b over the product of their
// Euclidean norms, or 0 when either norm is 0. Vectors of unequal length
// are multiplied over their common prefix.
func CosineSimilarity(a, b []float64) float64 {
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
