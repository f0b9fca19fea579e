package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/mnemo/pkg/llm"
)

// ChatRule answers any prompt containing Contains with Reply, or fails with Err.
type ChatRule struct {
	Contains string
	Reply    string
	Err      error
}

// MockChat is a scripted chat model. Rules are matched in order against the
// text of the last message; unmatched prompts get Default.
type MockChat struct {
	mu sync.Mutex

	Rules   []ChatRule
	Default string

	// Prompts records the last message text of every call.
	Prompts []string
}

func NewMockChat(rules ...ChatRule) *MockChat {
	return &MockChat{Rules: rules}
}

// On appends a rule and returns m for chaining.
func (m *MockChat) On(contains, reply string) *MockChat {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rules = append(m.Rules, ChatRule{Contains: contains, Reply: reply})
	return m
}

// Call has the signature of chat.Func.
func (m *MockChat) Call(_ context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].GetText()
	}
	m.Prompts = append(m.Prompts, prompt)

	for _, r := range m.Rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Reply, r.Err
		}
	}
	return m.Default, nil
}

// PromptsContaining returns the recorded prompts that contain s.
func (m *MockChat) PromptsContaining(s string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, p := range m.Prompts {
		if strings.Contains(p, s) {
			out = append(out, p)
		}
	}
	return out
}
