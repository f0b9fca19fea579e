package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/vector"
	"github.com/papercomputeco/mnemo/pkg/worker"
)

// SaveRequest is the body of POST /v1/agents/:agent/save.
type SaveRequest struct {
	Content    string `json:"content"`
	Category   string `json:"category,omitempty"`
	MemoryType string `json:"memory_type,omitempty"`
}

// MemorizeRequest is the body of POST /v1/agents/:agent/memorize.
type MemorizeRequest struct {
	Messages []llm.Message `json:"messages"`
}

// MemorizeResponse wraps the memorize result. Result is null when nothing
// was memorized.
type MemorizeResponse struct {
	Memorized bool                   `json:"memorized"`
	Result    *engine.MemorizeResult `json:"result"`
}

// handleRetrieve handles GET /v1/agents/:agent/retrieve.
// Query parameters:
//   - query (required): the text to retrieve memories for
//   - method (optional): embedding or llm
//   - ranking (optional): similarity or salience
//   - top_k_category, top_k_item, top_k_resource (optional): positive integers
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	opts := s.config.Retrieve
	if method := c.Query("method"); method != "" {
		opts.Method = engine.Method(method)
	}
	if ranking := c.Query("ranking"); ranking != "" {
		opts.ItemRanking = vector.Ranking(ranking)
	}

	for name, target := range map[string]*int{
		"top_k_category": &opts.TopKCategory,
		"top_k_item":     &opts.TopKItem,
		"top_k_resource": &opts.TopKResource,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: name + " must be a positive integer",
			})
		}
		*target = n
	}

	result, err := s.engine.Retrieve(c.UserContext(), c.Params("agent"), query, opts)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(result)
}

// handleSave handles POST /v1/agents/:agent/save.
func (s *Server) handleSave(c *fiber.Ctx) error {
	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	result, err := s.engine.Save(c.UserContext(), c.Params("agent"), engine.SaveInput{
		Content:    req.Content,
		Category:   req.Category,
		MemoryType: memory.MemoryType(req.MemoryType),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// QueuedResponse acknowledges an asynchronous memorize request.
type QueuedResponse struct {
	Queued bool `json:"queued"`
}

// handleMemorize handles POST /v1/agents/:agent/memorize. With async=true
// the transcript is handed to the worker pool and 202 is returned.
func (s *Server) handleMemorize(c *fiber.Ctx) error {
	var req MemorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	if c.QueryBool("async") {
		agentID := utils.CopyString(c.Params("agent"))
		if err := dotdir.ValidateAgentID(agentID); err != nil {
			return s.fail(c, err)
		}
		if !s.pool.Enqueue(worker.Job{AgentID: agentID, Transcript: req.Messages}) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error: "memorize queue is full",
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(QueuedResponse{Queued: true})
	}

	result, err := s.engine.Memorize(c.UserContext(), c.Params("agent"), req.Messages)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(MemorizeResponse{Memorized: result != nil, Result: result})
}
