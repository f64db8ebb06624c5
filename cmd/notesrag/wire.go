package main

import (
	"time"

	"go.uber.org/zap"

	"notesrag/internal/chunker"
	"notesrag/internal/config"
	"notesrag/internal/document"
	"notesrag/internal/domain"
	"notesrag/internal/embedding"
	hfembed "notesrag/internal/embedding/huggingface"
	oaembed "notesrag/internal/embedding/openai"
	hfgen "notesrag/internal/generation/huggingface"
	oagen "notesrag/internal/generation/openai"
	"notesrag/internal/library"
	"notesrag/internal/service"
	"notesrag/internal/summarizer"
	"notesrag/internal/vectorstore"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// newService assembles the RAG service from cfg.
func newService(cfg *config.AppConfig, lib *library.Library, zl *zap.Logger) (*service.RAGService, error) {
	var backend embedding.Backend
	switch cfg.Embedder.Type {
	case "openai":
		oc := cfg.Embedder.OpenAI
		backend = oaembed.NewClient(oaembed.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: secs(cfg.Embedder.TimeoutSecs),
		})
	default:
		backend = hfembed.NewClient(hfembed.Config{
			URL:     cfg.Embedder.URL,
			Timeout: secs(cfg.Embedder.TimeoutSecs),
		})
	}
	emb, err := embedding.NewClient(backend, cfg.Embedder.CacheSize, zl.Named("embedding"))
	if err != nil {
		return nil, err
	}

	var gen domain.Generator
	temperature32 := float32(cfg.Generator.Temperature)
	switch cfg.Generator.Type {
	case "openai":
		oc := cfg.Generator.OpenAI
		gen = oagen.NewClient(oagen.Config{
			BaseURL:         oc.BaseURL,
			Model:           oc.Model,
			Timeout:         secs(cfg.Generator.TimeoutSecs),
			MaxTokens:       cfg.Generator.MaxNewTokens,
			Temperature:     &temperature32,
			MaxContextRunes: cfg.Generator.MaxContextChars,
		}, zl.Named("generation"))
	default:
		gen = hfgen.NewClient(hfgen.Config{
			URL:             cfg.Generator.URL,
			Timeout:         secs(cfg.Generator.TimeoutSecs),
			MaxNewTokens:    cfg.Generator.MaxNewTokens,
			Temperature:     &cfg.Generator.Temperature,
			MaxContextRunes: cfg.Generator.MaxContextChars,
		}, zl.Named("generation"))
	}

	ch, err := chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	return service.NewRAGService(lib, document.NewLoader(zl.Named("loader")), ch, emb, gen,
		summarizer.NewFrequencySummarizer(cfg.Summarizer.MaxSentences),
		service.Options{
			Credential: cfg.Credential(),
			TopK:       cfg.Retrieval.TopK,
			Store: vectorstore.Options{
				CacheFile:   cfg.VectorStore.CacheFile,
				FallbackDim: cfg.Embedder.FallbackDim,
				Workers:     cfg.Embedder.Workers,
			},
			HistoryFile: cfg.History.File,
			Logger:      zl,
		}), nil
}
