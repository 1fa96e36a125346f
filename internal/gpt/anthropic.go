package gpt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicClient sends conversations to the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	log       *logger.Logger
}

var _ domain.ModelClient = (*AnthropicClient)(nil)

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	model     string
	maxTokens int64
	reqOpts   []option.RequestOption
}

// WithAnthropicModel overrides the model name.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnthropicMaxTokens sets the response token limit.
func WithAnthropicMaxTokens(n int64) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = n }
}

// WithAnthropicBaseURL points the client at a different API host.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) {
		c.reqOpts = append(c.reqOpts, option.WithBaseURL(url), option.WithMaxRetries(0))
	}
}

// NewAnthropicClient creates a client authenticated with apiKey.
func NewAnthropicClient(apiKey string, log *logger.Logger, opts ...AnthropicOption) *AnthropicClient {
	cfg := anthropicConfig{model: DefaultAnthropicModel, maxTokens: 2048}
	for _, o := range opts {
		o(&cfg)
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.reqOpts...)
	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
		log:       log,
	}
}

// Complete sends the conversation. System turns are lifted into the
// request's system prompt.
func (c *AnthropicClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
	}

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Text})
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		default:
			blocks := []anthropic.ContentBlockParamUnion{}
			if len(m.Image) > 0 {
				blocks = append(blocks, anthropic.NewImageBlockBase64("image/jpeg", base64.StdEncoding.EncodeToString(m.Image)))
			}
			blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}

	c.log.Debug("gpt: anthropic %s, %d messages", c.model, len(params.Messages))

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("gpt: anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gpt: anthropic returned no text")
	}

	reply := sb.String()
	c.log.Debug("gpt: reply (%d chars): %s", len(reply), truncate(reply, 120))
	return reply, nil
}
