package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 10 * time.Second
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is an OpenAI-compatible embeddings backend. The credential is
// supplied per call, so a go-openai client is configured for each request.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	t := cfg.Timeout
	if t == 0 {
		t = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: t},
	}
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "openai" }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text, credential string) ([]float64, error) {
	cfg := goopenai.DefaultConfig(credential)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient

	resp, err := goopenai.NewClientWithConfig(cfg).CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	src := resp.Data[0].Embedding
	v := make([]float64, len(src))
	for i, f := range src {
		v[i] = float64(f)
	}
	return v, nil
}
