package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// Default is returned for texts missing from Embeddings.
	Default []float32

	// FailOn causes Embed to return an error when any input text matches
	FailOn string

	// Fail causes every Embed call to return an error.
	Fail bool

	// Short drops the last vector of every successful batch.
	Short bool

	// Calls records every batch passed to Embed.
	Calls [][]string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]string(nil), texts...))

	if m.Fail {
		return nil, fmt.Errorf("mock embedding failure")
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", text)
		}
		emb, ok := m.Embeddings[text]
		if !ok {
			emb = m.Default
		}
		out = append(out, append([]float32(nil), emb...))
	}

	if m.Short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// CallCount returns the number of Embed calls so far.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockEmbedder) Close() error {
	return nil
}
