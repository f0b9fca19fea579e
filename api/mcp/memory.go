package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
)

var (
	saveToolName    = "memory_save"
	saveDescription = "Save a piece of information into long-term memory (e.g. a user preference, fact, or instruction). Saving a known fact again reinforces it."

	memorizeToolName    = "memory_memorize"
	memorizeDescription = "Extract long-term memories from a conversation transcript and store them, updating category summaries."
)

// SaveInput represents the input arguments for the memory_save tool.
type SaveInput struct {
	Content  string `json:"content" jsonschema:"the information to remember, concise and self-contained"`
	Category string `json:"category,omitempty" jsonschema:"optional category such as soul, user, agents or tools (default: user)"`
}

// SaveOutput represents the structured output of memory_save.
type SaveOutput struct {
	ItemID     string `json:"item_id"`
	Category   string `json:"category"`
	Reinforced bool   `json:"reinforced"`
}

func (s *Server) handleSave(ctx context.Context, _ *mcp.CallToolRequest, input SaveInput) (*mcp.CallToolResult, SaveOutput, error) {
	if strings.TrimSpace(input.Content) == "" {
		return errorResult("content is required"), SaveOutput{}, nil
	}

	res, err := s.config.Memory.Save(ctx, s.config.AgentID, engine.SaveInput{
		Content:  input.Content,
		Category: input.Category,
	})
	if err != nil {
		s.config.Logger.Error("memory save failed", "agent_id", s.config.AgentID, "error", err)
		return errorResult(fmt.Sprintf("Error saving memory: %v", err)), SaveOutput{}, nil
	}

	output := SaveOutput{
		ItemID:     res.Item.ID,
		Category:   res.Category,
		Reinforced: res.Reinforced,
	}
	return textResult(fmt.Sprintf("Saved to memory: %s...", truncate(res.Item.Summary, 100))), output, nil
}

// Turn is one message of a transcript passed to memory_memorize.
type Turn struct {
	Role string `json:"role" jsonschema:"speaker role: user, assistant, system or tool"`
	Text string `json:"text" jsonschema:"message text"`
}

// MemorizeInput represents the input arguments for the memory_memorize tool.
type MemorizeInput struct {
	Messages []Turn `json:"messages" jsonschema:"the conversation to memorize, oldest first"`
}

// MemorizeOutput represents the structured output of memory_memorize.
type MemorizeOutput struct {
	Memorized         bool   `json:"memorized"`
	ResourceID        string `json:"resource_id,omitempty"`
	ItemsCount        int    `json:"items_count"`
	Reinforced        int    `json:"reinforced"`
	CategoriesUpdated int    `json:"categories_updated"`
}

func (s *Server) handleMemorize(ctx context.Context, _ *mcp.CallToolRequest, input MemorizeInput) (*mcp.CallToolResult, MemorizeOutput, error) {
	transcript := make([]llm.Message, 0, len(input.Messages))
	for _, t := range input.Messages {
		transcript = append(transcript, llm.NewTextMessage(t.Role, t.Text))
	}

	res, err := s.config.Memory.Memorize(ctx, s.config.AgentID, transcript)
	if err != nil {
		s.config.Logger.Error("memorize failed", "agent_id", s.config.AgentID, "error", err)
		return errorResult(fmt.Sprintf("Memorize failed: %v", err)), MemorizeOutput{}, nil
	}
	if res == nil {
		return textResult("No memories extracted."), MemorizeOutput{}, nil
	}

	output := MemorizeOutput{
		Memorized:         true,
		ResourceID:        res.ResourceID,
		ItemsCount:        res.ItemsCount,
		Reinforced:        res.Reinforced,
		CategoriesUpdated: res.CategoriesUpdated,
	}
	text := fmt.Sprintf("Memorized %d items (%d reinforced), updated %d categories.",
		res.ItemsCount, res.Reinforced, res.CategoriesUpdated)
	return textResult(text), output, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
