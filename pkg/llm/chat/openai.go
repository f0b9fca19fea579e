package chat

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/mnemo/pkg/llm"
)

func newOpenAICaller(cfg Config) Func {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	client := goopenai.NewClientWithConfig(clientCfg)

	return func(ctx context.Context, messages []llm.Message) (string, error) {
		req := goopenai.ChatCompletionRequest{
			Model:    cfg.Model,
			Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
		}
		for _, m := range messages {
			role := m.Role
			if role == "" {
				role = goopenai.ChatMessageRoleUser
			}
			req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
				Role:    role,
				Content: m.GetText(),
			})
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("openai request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai returned no choices")
		}

		return resp.Choices[0].Message.Content, nil
	}
}
