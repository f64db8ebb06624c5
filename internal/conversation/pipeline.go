// Package conversation runs question-answer turns against a vector store
// and keeps the running transcript.
package conversation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"notesrag/internal/domain"
	"notesrag/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

const contextSeparator = "\n\n"

// Pipeline composes retrieval with generation for one session. The store
// is only read. The transcript is append-only and not synchronized, so
// callers must not run Ask concurrently on the same Pipeline.
type Pipeline struct {
	store      domain.Searcher
	embedder   domain.Embedder
	generator  domain.Generator
	credential string
	topK       int
	log        *zap.Logger
	now        func() time.Time

	transcript []domain.Turn
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks are passed as context.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(l) }
}

// WithClock overrides the turn timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline with an empty transcript.
func New(store domain.Searcher, embedder domain.Embedder, generator domain.Generator, credential string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		embedder:   embedder,
		generator:  generator,
		credential: credential,
		topK:       DefaultTopK,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask appends question to the transcript, answers it from the most similar
// chunks and returns the updated transcript. When the question cannot be
// embedded no answer turn is added.
func (p *Pipeline) Ask(ctx context.Context, question string) []domain.Turn {
	p.append(question, true)

	query := p.embedder.Embed(ctx, question, p.credential)
	if len(query) == 0 {
		p.log.Warn("question embedding failed; no answer generated")
		return p.Transcript()
	}

	docs := p.store.SimilaritySearch(query, p.topK)
	p.log.Debug("retrieved context", zap.Int("chunks", len(docs)))
	answer := p.generator.Generate(ctx, question, strings.Join(docs, contextSeparator), p.credential)

	p.append(answer, false)
	return p.Transcript()
}

// Transcript returns a copy of the turns so far.
func (p *Pipeline) Transcript() []domain.Turn {
	return append([]domain.Turn(nil), p.transcript...)
}

func (p *Pipeline) append(content string, user bool) {
	p.transcript = append(p.transcript, domain.Turn{Content: content, User: user, Time: p.now()})
}
