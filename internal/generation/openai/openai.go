package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"notesrag/internal/generation"
	"notesrag/internal/logger"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = goopenai.GPT4oMini
	DefaultTimeout = 15 * time.Second

	DefaultTemperature float32 = 0.7
)

// Config configures the chat-completion client.
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	// Temperature is sent as given; nil selects DefaultTemperature.
	Temperature     *float32
	MaxContextRunes int
}

// Client answers questions through an OpenAI-compatible chat endpoint.
type Client struct {
	cfg         Config
	temperature float32
	httpClient  *http.Client
	log         *zap.Logger
}

// NewClient creates a chat-completion client with defaults applied.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if temperature == 0 {
		// go-openai omits a zero temperature and the API then uses its own default.
		temperature = math.SmallestNonzeroFloat32
	}
	if cfg.MaxContextRunes == 0 {
		cfg.MaxContextRunes = generation.MaxContextRunes
	}
	return &Client{cfg: cfg, temperature: temperature, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger.OrNop(log)}
}

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, question, contextText, credential string) string {
	oc := goopenai.DefaultConfig(credential)
	oc.BaseURL = c.cfg.BaseURL
	oc.HTTPClient = c.httpClient

	prompt := generation.Prompt(question, generation.TruncateContext(contextText, c.cfg.MaxContextRunes))
	resp, err := goopenai.NewClientWithConfig(oc).CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.log.Warn("chat completion failed", zap.Error(err))
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return generation.StatusError(apiErr.HTTPStatusCode)
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return generation.StatusError(reqErr.HTTPStatusCode)
		}
		return generation.RequestError(err)
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
