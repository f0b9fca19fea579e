package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search long-term memory for information relevant to the query. Returns the most relevant remembered facts."

	noResultsText = "No relevant memories found."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of memories to return (default: configured top_k_item)"`
}

// SearchResult represents a single remembered fact.
type SearchResult struct {
	ID      string  `json:"id"`
	Summary string  `json:"summary"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), SearchOutput{}, nil
	}

	opts := s.config.Retrieve
	if input.TopK > 0 {
		opts.TopKItem = input.TopK
	}

	logger.Debug("MCP search request", "query", input.Query, "top_k", opts.TopKItem)

	result, err := s.config.Memory.Retrieve(ctx, s.config.AgentID, input.Query, opts)
	if err != nil {
		logger.Error("memory search failed", "agent_id", s.config.AgentID, "error", err)
		return errorResult(fmt.Sprintf("Memory search failed: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: make([]SearchResult, 0, len(result.Items)),
	}
	lines := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		output.Results = append(output.Results, SearchResult{
			ID:      item.ID,
			Summary: item.Summary,
			Type:    string(item.MemoryType),
			Score:   item.Score,
		})
		lines = append(lines, item.Summary)
	}
	output.Count = len(output.Results)

	if len(lines) == 0 {
		return textResult(noResultsText), output, nil
	}
	return textResult(strings.Join(lines, "\n")), output, nil
}
