// Package chat turns a configured provider into a single-shot chat call used
// for memory extraction, category summaries, and LLM-ranked retrieval.
package chat

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/mnemo/pkg/llm"
)

// Func sends a conversation and returns the model's text reply.
type Func func(ctx context.Context, messages []llm.Message) (string, error)

const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultTimeout   = 2 * time.Minute
	defaultMaxTokens = 2048
)

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai", "anthropic", or "ollama"
	Model    string
	APIKey   string // falls back to OPENAI_API_KEY / ANTHROPIC_API_KEY
	BaseURL  string // override base URL

	// Timeout bounds each call. Defaults to two minutes.
	Timeout time.Duration

	// MaxTokens caps the reply length where the provider requires it.
	MaxTokens int
}

// New creates a Func for cfg.Provider.
func New(cfg Config) (Func, error) {
	provider := strings.ToLower(cfg.Provider)

	if cfg.APIKey == "" {
		cfg.APIKey = resolveAPIKeyFromEnv(provider)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	var call Func
	switch provider {
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		call = newOpenAICaller(cfg)

	case ProviderAnthropic:
		if cfg.Model == "" {
			cfg.Model = "claude-3-5-haiku-latest"
		}
		call = newAnthropicCaller(cfg)

	case ProviderOllama, "":
		if cfg.Model == "" {
			cfg.Model = "llama3.2"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434"
		}
		call = newOllamaCaller(cfg)

	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Provider)
	}

	timeout := cfg.Timeout
	return func(ctx context.Context, messages []llm.Message) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return call(ctx, messages)
	}, nil
}

// Prompt is a convenience for the common single user message call.
func Prompt(ctx context.Context, call Func, prompt string) (string, error) {
	return call(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)})
}

func resolveAPIKeyFromEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
