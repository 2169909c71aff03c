package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

const (
	defaultAnthropicModel    = "claude-sonnet-4-5"
	anthropicMaxOutputTokens = 8192
)

// Anthropic wraps the Claude Messages API.
type Anthropic struct {
	log    *logger.Logger
	client sdk.Client
	model  string
}

func NewAnthropic(log *logger.Logger, cfg config.AIConfig) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.AnthropicAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing ANTHROPIC_API_KEY", ErrUnavailable)
	}
	model := strings.TrimSpace(cfg.AnthropicModel)
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		log:    log.With("service", "AnthropicProvider"),
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *Anthropic) Name() string { return "anthropic" }

func (c *Anthropic) Preflight(ctx context.Context) error { return nil }

func (c *Anthropic) Generate(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: anthropicMaxOutputTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("anthropic reply carried no text blocks")
	}
	return out.String(), nil
}
