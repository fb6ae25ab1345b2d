// Package llm wraps the generative text service behind a single-call interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("text service returned no content")

// TextGenerator sends one prompt and returns the first text part of the answer.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config captures the runtime settings required to talk to the text service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements TextGenerator on an OpenAI-compatible chat completions endpoint.
type Client struct {
	client openai.Client
	model  string
}

// NewClient validates cfg and builds a client. Requests are never retried: a
// completion is billable and a repeated call may produce different text.
func NewClient(cfg Config, extra ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("llm: model required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("llm generate (%s): %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
