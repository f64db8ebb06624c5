package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultURL     = "https://api-inference.huggingface.co/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2"
	DefaultTimeout = 10 * time.Second
)

// Config configures the feature-extraction client.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client calls a Hugging Face feature-extraction pipeline.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a feature-extraction client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{url: cfg.URL, client: &http.Client{Timeout: cfg.Timeout}}
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "huggingface" }

type request struct {
	Inputs  string  `json:"inputs"`
	Options options `json:"options"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Embed posts text to the pipeline. Only a flat JSON array of numbers is
// accepted as a successful response.
func (c *Client) Embed(ctx context.Context, text, credential string) ([]float64, error) {
	data, err := json.Marshal(request{Inputs: text, Options: options{WaitForModel: true}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feature extraction failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal(payload, &vec); err != nil {
		return nil, fmt.Errorf("unexpected feature extraction response: %w", err)
	}
	if len(vec) == 0 {
		return nil, errors.New("empty embedding")
	}
	return vec, nil
}
