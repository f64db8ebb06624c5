package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"notesrag/internal/generation"
	"notesrag/internal/logger"
)

const (
	DefaultURL          = "https://api-inference.huggingface.co/models/google/flan-t5-xxl"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxNewTokens = 100
	DefaultTemperature  = 0.7
)

// Config configures the text-generation client.
type Config struct {
	URL          string
	Timeout      time.Duration
	MaxNewTokens int
	// Temperature is sent as given; nil selects DefaultTemperature.
	Temperature     *float64
	MaxContextRunes int
}

// Client calls a Hugging Face text-generation model.
type Client struct {
	url             string
	maxNewTokens    int
	temperature     float64
	maxContextRunes int
	client          *http.Client
	log             *zap.Logger
}

// NewClient creates a text-generation client with defaults applied.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxNewTokens == 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxContextRunes == 0 {
		cfg.MaxContextRunes = generation.MaxContextRunes
	}
	return &Client{
		url:             cfg.URL,
		maxNewTokens:    cfg.MaxNewTokens,
		temperature:     temperature,
		maxContextRunes: cfg.MaxContextRunes,
		client:          &http.Client{Timeout: cfg.Timeout},
		log:             logger.OrNop(log),
	}
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
	Options    options    `json:"options"`
}

type parameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Generate asks the model to answer question from contextText. Failures
// come back as error text so the conversation always gets an answer.
func (c *Client) Generate(ctx context.Context, question, contextText, credential string) string {
	body := request{
		Inputs: generation.Prompt(question, generation.TruncateContext(contextText, c.maxContextRunes)),
		Parameters: parameters{
			MaxNewTokens:   c.maxNewTokens,
			Temperature:    c.temperature,
			ReturnFullText: false,
		},
		Options: options{WaitForModel: true},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return generation.RequestError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return generation.RequestError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("generation request failed", zap.Error(err))
		return generation.RequestError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Warn("generation backend returned non-success status", zap.Int("status", resp.StatusCode))
		return generation.StatusError(resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return generation.RequestError(err)
	}
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		c.log.Warn("generation response is not JSON", zap.Error(err))
		return generation.RequestError(err)
	}
	out := DecodeResponse(payload)
	if out.Shape == ShapeUnknown {
		c.log.Debug("unrecognized generation response shape", zap.Int("bytes", len(payload)))
	}
	return out.Text
}
