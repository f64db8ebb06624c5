package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"notesrag/internal/conversation"
	"notesrag/internal/domain"
	"notesrag/internal/history"
	"notesrag/internal/library"
	"notesrag/internal/logger"
	"notesrag/internal/vectorstore"
)

var (
	ErrNoCredential = errors.New("no API credential configured")
	ErrEmptyLibrary = errors.New("library is empty")
	ErrNotProcessed = errors.New("library has not been processed")
)

// Library is the part of the document registry the service needs.
type Library interface {
	Paths(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Loader turns library files into corpus text.
type Loader interface {
	Load(ctx context.Context, paths []string) string
}

// Options carries the tunables of a RAGService.
type Options struct {
	Credential  string
	TopK        int
	Store       vectorstore.Options
	HistoryFile string
	Logger      *zap.Logger
}

// RAGService ties the library to a conversation pipeline. Each call to
// ProcessLibrary replaces the pipeline and with it the transcript. Like the
// pipeline, RAGService must not be used from several goroutines at once.
type RAGService struct {
	library    Library
	loader     Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	generator  domain.Generator
	summarizer domain.Summarizer
	opts       Options
	log        *zap.Logger

	pipeline *conversation.Pipeline
	chunks   int
}

func NewRAGService(lib Library, loader Loader, chunker domain.Chunker, embedder domain.Embedder, generator domain.Generator, summarizer domain.Summarizer, opts Options) *RAGService {
	log := logger.OrNop(opts.Logger)
	opts.Store.Logger = log
	return &RAGService{
		library:    lib,
		loader:     loader,
		chunker:    chunker,
		embedder:   embedder,
		generator:  generator,
		summarizer: summarizer,
		opts:       opts,
		log:        log,
	}
}

// ProcessLibrary reads every library document, builds or loads the vector
// store and starts a fresh conversation. It returns a short summary of the
// corpus.
func (s *RAGService) ProcessLibrary(ctx context.Context) (string, error) {
	if s.opts.Credential == "" {
		return "", ErrNoCredential
	}
	paths, err := s.library.Paths(ctx)
	if err != nil {
		return "", fmt.Errorf("list library: %w", err)
	}
	if len(paths) == 0 {
		return "", ErrEmptyLibrary
	}

	text := s.loader.Load(ctx, paths)
	chunks, err := s.chunker.Chunk(text)
	if err != nil {
		return "", err
	}
	s.log.Info("library loaded", zap.Int("documents", len(paths)), zap.Int("chunks", len(chunks)))

	store, err := vectorstore.Build(ctx, chunks, s.embedder, s.opts.Credential, s.opts.Store)
	if err != nil {
		return "", fmt.Errorf("build vector store: %w", err)
	}
	s.pipeline = conversation.New(store, s.embedder, s.generator, s.opts.Credential,
		conversation.WithTopK(s.opts.TopK),
		conversation.WithLogger(s.log))
	s.chunks = store.Len()

	if s.summarizer == nil {
		return "", nil
	}
	return s.summarizer.Summarize(text), nil
}

// Processed reports whether a conversation is ready.
func (s *RAGService) Processed() bool { return s.pipeline != nil }

// Chunks returns the size of the current vector store.
func (s *RAGService) Chunks() int { return s.chunks }

// Ask answers question in the current conversation and saves the
// transcript. A failed save is logged and does not affect the answer.
func (s *RAGService) Ask(ctx context.Context, question string) ([]domain.Turn, error) {
	if s.pipeline == nil {
		return nil, ErrNotProcessed
	}
	turns := s.pipeline.Ask(ctx, question)
	if s.opts.HistoryFile != "" {
		if err := history.Save(s.opts.HistoryFile, turns); err != nil {
			s.log.Warn("could not save chat history", zap.String("path", s.opts.HistoryFile), zap.Error(err))
		}
	}
	return turns, nil
}

// Transcript returns the current conversation, or nil before processing.
func (s *RAGService) Transcript() []domain.Turn {
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.Transcript()
}

// Export renders the current conversation as text.
func (s *RAGService) Export() string {
	return history.ExportText(s.Transcript())
}

// ClearLibrary empties the library, ends the conversation and removes the
// vector store cache. Files that cannot be removed are logged, not returned.
func (s *RAGService) ClearLibrary(ctx context.Context) error {
	s.pipeline = nil
	s.chunks = 0
	if err := s.library.Clear(ctx); err != nil {
		var rmErr *library.RemoveError
		if !errors.As(err, &rmErr) {
			return fmt.Errorf("clear library: %w", err)
		}
		s.log.Warn("some library files could not be removed", zap.Error(err))
	}
	if err := vectorstore.RemoveCache(s.opts.Store.CacheFile); err != nil {
		s.log.Warn("could not remove vector store cache", zap.Error(err))
	}
	return nil
}
