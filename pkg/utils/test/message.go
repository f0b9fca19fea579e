package testutils

import (
	"github.com/papercomputeco/mnemo/pkg/llm"
)

// NewTestMessage creates a single-text-block message for testing
func NewTestMessage(role, text string) llm.Message {
	return llm.Message{
		Role:    role,
		Content: []llm.ContentBlock{{Type: "text", Text: text}},
	}
}

// NewTestTranscript builds a transcript from alternating role, text pairs.
func NewTestTranscript(pairs ...string) []llm.Message {
	msgs := make([]llm.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		msgs = append(msgs, NewTestMessage(pairs[i], pairs[i+1]))
	}
	return msgs
}
