package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"quizgen-backend/internal/llm"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// Config configures the Anthropic client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Client implements llm.Client using the Anthropic Messages API.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClient constructs a new Anthropic client. Retries are left to
// llm.WithRetry, so the SDK's own retry loop is disabled.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{client: &client, model: cfg.Model, maxTokens: maxTokens}, nil
}

// Complete sends the prompt as one user turn and returns the concatenated
// text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Prompt)},
			},
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return "", mapError(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &llm.Error{Provider: providerName, Reason: llm.ReasonUpstreamError, Retryable: true, Err: errors.New("response has no text content")}
	}
	return b.String(), nil
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return llm.FromStatus(providerName, apiErr.StatusCode, errors.New(http.StatusText(apiErr.StatusCode)))
	}
	return llm.Classify(providerName, err)
}

var _ llm.Client = (*Client)(nil)
