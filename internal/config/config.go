package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"notesrag/internal/domain"
)

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type        string        `yaml:"type"`
	URL         string        `yaml:"url"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	CacheSize   int           `yaml:"cache_size"`
	FallbackDim int           `yaml:"fallback_dim"`
	Workers     int           `yaml:"workers"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the text-generation backend.
type GeneratorConfig struct {
	Type            string        `yaml:"type"`
	URL             string        `yaml:"url"`
	TimeoutSecs     int           `yaml:"timeout_secs"`
	MaxContextChars int           `yaml:"max_context_chars"`
	MaxNewTokens    int           `yaml:"max_new_tokens"`
	Temperature     float64       `yaml:"temperature"`
	OpenAI          *OpenAIConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how the corpus is split into windows.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures context retrieval per question.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// VectorStoreConfig configures the on-disk vector store cache.
type VectorStoreConfig struct {
	CacheFile string `yaml:"cache_file"`
}

// LibraryConfig locates the document registry and managed files.
type LibraryConfig struct {
	DBPath  string `yaml:"db_path"`
	DocsDir string `yaml:"docs_dir"`
	// PDFLicenseKeyEnv names the env var holding a unidoc metered key.
	PDFLicenseKeyEnv string `yaml:"pdf_license_key_env"`
}

// HistoryConfig locates the saved transcript.
type HistoryConfig struct {
	File string `yaml:"file"`
}

// SummarizerConfig configures the library summary.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	CredentialEnv string            `yaml:"credential_env"`
	Embedder      EmbedderConfig    `yaml:"embedder"`
	Generator     GeneratorConfig   `yaml:"generator"`
	Chunker       ChunkerConfig     `yaml:"chunker"`
	Retrieval     RetrievalConfig   `yaml:"retrieval"`
	VectorStore   VectorStoreConfig `yaml:"vector_store"`
	Library       LibraryConfig     `yaml:"library"`
	History       HistoryConfig     `yaml:"history"`
	Summarizer    SummarizerConfig  `yaml:"summarizer"`
	Log           LogConfig         `yaml:"log"`
}

// Credential returns the bearer credential from the configured env var.
func (c *AppConfig) Credential() string {
	return os.Getenv(c.CredentialEnv)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/notesrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/notesrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings that would make processing impossible.
func (c *AppConfig) Validate() error {
	if c.Chunker.Size <= 0 {
		return &domain.ConfigurationError{Field: "chunker.size", Reason: "must be positive"}
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return &domain.ConfigurationError{Field: "chunker.overlap", Reason: "must be in [0, chunker.size)"}
	}
	switch c.Embedder.Type {
	case "huggingface", "openai":
	default:
		return &domain.ConfigurationError{Field: "embedder.type", Reason: fmt.Sprintf("unknown embedder %q", c.Embedder.Type)}
	}
	switch c.Generator.Type {
	case "huggingface", "openai":
	default:
		return &domain.ConfigurationError{Field: "generator.type", Reason: fmt.Sprintf("unknown generator %q", c.Generator.Type)}
	}
	if c.Embedder.Workers < 1 {
		return &domain.ConfigurationError{Field: "embedder.workers", Reason: "must be at least 1"}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "notesrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		CredentialEnv: "HUGGINGFACE_API_TOKEN",
		Embedder: EmbedderConfig{
			Type:        "huggingface",
			URL:         "https://api-inference.huggingface.co/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2",
			TimeoutSecs: 10,
			CacheSize:   1000,
			FallbackDim: 384,
			Workers:     1,
		},
		Generator: GeneratorConfig{
			Type:            "huggingface",
			URL:             "https://api-inference.huggingface.co/models/google/flan-t5-xxl",
			TimeoutSecs:     15,
			MaxContextChars: 1000,
			MaxNewTokens:    100,
			Temperature:     0.7,
		},
		Chunker:     ChunkerConfig{Size: 500, Overlap: 100},
		Retrieval:   RetrievalConfig{TopK: 3},
		VectorStore: VectorStoreConfig{CacheFile: "vectorstore.bin"},
		Library: LibraryConfig{
			DBPath:           "notes.db",
			DocsDir:          "docs",
			PDFLicenseKeyEnv: "UNIDOC_LICENSE_API_KEY",
		},
		History:    HistoryConfig{File: "chat_history.json"},
		Summarizer: SummarizerConfig{MaxSentences: 3},
		Log:        LogConfig{Level: "info", File: "notesrag.log"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.CredentialEnv == "" {
		cfg.CredentialEnv = def.CredentialEnv
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = def.Embedder.CacheSize
	}
	if cfg.Embedder.FallbackDim == 0 {
		cfg.Embedder.FallbackDim = def.Embedder.FallbackDim
	}
	if cfg.Embedder.Workers == 0 {
		cfg.Embedder.Workers = def.Embedder.Workers
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = def.Generator.Type
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = def.Generator.TimeoutSecs
	}
	if cfg.Generator.MaxContextChars == 0 {
		cfg.Generator.MaxContextChars = def.Generator.MaxContextChars
	}
	if cfg.Generator.MaxNewTokens == 0 {
		cfg.Generator.MaxNewTokens = def.Generator.MaxNewTokens
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIConfig{}
	}
	if cfg.Generator.Type == "openai" && cfg.Generator.OpenAI == nil {
		cfg.Generator.OpenAI = &OpenAIConfig{}
	}
}
