// Package mcp exposes one agent's memory as MCP (Model Context Protocol)
// tools: memory_save, memory_search, and memory_memorize.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
	"github.com/papercomputeco/mnemo/pkg/utils"
)

// Memory is the part of the engine the tools call into.
type Memory interface {
	Save(ctx context.Context, agentID string, in engine.SaveInput) (*engine.SaveResult, error)
	Retrieve(ctx context.Context, agentID, query string, opts engine.RetrieveOptions) (*engine.RetrieveResult, error)
	Memorize(ctx context.Context, agentID string, transcript []llm.Message) (*engine.MemorizeResult, error)
}

type Config struct {
	// Memory backs every tool.
	Memory Memory

	// AgentID is the agent whose memory the tools read and write.
	AgentID string

	// Retrieve holds the options memory_search runs with.
	Retrieve engine.RetrieveOptions

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mnemo",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Memory == nil {
		return nil, errors.New("memory engine is required")
	}
	if c.AgentID == "" {
		return nil, errors.New("agent id is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        saveToolName,
		Description: saveDescription,
	}, s.handleSave)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memorizeToolName,
		Description: memorizeDescription,
	}, s.handleMemorize)

	s.mcpServer = mcpServer

	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server. It is nil for a noop
// server.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}

// Run serves over stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
