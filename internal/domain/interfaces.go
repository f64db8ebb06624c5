package domain

import (
	"context"
	"fmt"
	"time"
)

// Document is a file registered in the personal library.
type Document struct {
	ID         int64
	Name       string
	Path       string
	UploadedAt time.Time
}

// Turn is a single utterance in a conversation transcript.
type Turn struct {
	Content string
	User    bool
	Time    time.Time
}

// Chunker splits corpus text into ordered retrieval chunks.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Embedder turns text into a vector. An empty result signals a soft failure.
type Embedder interface {
	Embed(ctx context.Context, text, credential string) []float64
}

// Generator answers a question from retrieved context. Backend failures are
// rendered as answer text rather than returned as errors.
type Generator interface {
	Generate(ctx context.Context, question, contextText, credential string) string
}

// Searcher ranks stored chunks against a query embedding.
type Searcher interface {
	SimilaritySearch(query []float64, k int) []string
	Len() int
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string) string
}

// ConfigurationError reports a setting that would make an operation
// impossible to carry out. It is raised before any work begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
