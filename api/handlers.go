package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/memory"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AgentsResponse lists the agents with a memory directory.
type AgentsResponse struct {
	Agents []string `json:"agents"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListAgents handles GET /v1/agents.
func (s *Server) handleListAgents(c *fiber.Ctx) error {
	agents, err := s.engine.Agents()
	if err != nil {
		return s.fail(c, err)
	}
	if agents == nil {
		agents = []string{}
	}
	return c.JSON(AgentsResponse{Agents: agents})
}

// handleListCategories handles GET /v1/agents/:agent/categories.
func (s *Server) handleListCategories(c *fiber.Ctx) error {
	cats, err := s.engine.Categories(c.UserContext(), c.Params("agent"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(cats)
}

// handleExport handles GET /v1/agents/:agent/export, returning the Markdown
// export.
func (s *Server) handleExport(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	if err := s.engine.Export(c.UserContext(), c.Params("agent"), c.Response().BodyWriter()); err != nil {
		c.Response().ResetBody()
		return s.fail(c, err)
	}
	return nil
}

// fail maps an engine error onto a status code and JSON error body.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dotdir.ErrInvalidAgentID),
		errors.Is(err, memory.ErrEmptySummary),
		errors.Is(err, memory.ErrInvalidMemoryType),
		errors.Is(err, engine.ErrUnknownCategory),
		errors.Is(err, engine.ErrUnknownMethod),
		errors.Is(err, engine.ErrUnknownRanking):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrNoChat),
		errors.Is(err, engine.ErrNoEmbedder):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
