package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mnemo/api/mcp"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/worker"
)

// Server is the API server for an engine's agent memories.
type Server struct {
	config Config
	engine *engine.Engine
	logger *slog.Logger
	app    *fiber.App
	pool   *worker.Pool
}

// NewServer creates a new API server on top of eng.
func NewServer(config Config, eng *engine.Engine, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Agent ids taken from route params outlive the handler (worker
		// jobs, the engine's store registry).
		Immutable: true,
	})

	pool, err := worker.NewPool(&worker.Config{
		Memorizer:  eng,
		NumWorkers: config.Workers,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memorize pool: %w", err)
	}

	s := &Server{
		config: config,
		engine: eng,
		logger: logger,
		app:    app,
		pool:   pool,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/agents", s.handleListAgents)

	agent := v1.Group("/agents/:agent")
	agent.Get("/categories", s.handleListCategories)
	agent.Get("/retrieve", s.handleRetrieve)
	agent.Post("/save", s.handleSave)
	agent.Post("/memorize", s.handleMemorize)
	agent.Get("/export", s.handleExport)

	if config.Metrics.Enabled() {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	if config.MCPAgent != "" {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Memory:   eng,
			AgentID:  config.MCPAgent,
			Retrieve: config.Retrieve,
			Logger:   logger,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp_agent", s.config.MCPAgent,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server, then drains queued
// memorize jobs.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.pool.Close()
	return err
}
