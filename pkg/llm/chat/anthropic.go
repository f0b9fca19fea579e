package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/mnemo/pkg/llm"
)

func newAnthropicCaller(cfg Config) Func {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return func(ctx context.Context, messages []llm.Message) (string, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(cfg.Model),
			MaxTokens: int64(cfg.MaxTokens),
		}

		for _, m := range messages {
			text := m.GetText()
			switch m.Role {
			case llm.RoleSystem:
				params.System = append(params.System, anthropic.TextBlockParam{Text: text})
			case llm.RoleAssistant:
				params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
			default:
				params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}

		msg, err := client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic request: %w", err)
		}

		var b strings.Builder
		for _, cb := range msg.Content {
			if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(tb.Text)
			}
		}
		return b.String(), nil
	}
}
