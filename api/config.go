// Package api provides an HTTP API server for reading and writing agent
// memory.
package api

import (
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Retrieve holds the options retrieve requests start from; query
	// parameters override them per request.
	Retrieve engine.RetrieveOptions

	// Metrics, when enabled, is served on /metrics.
	Metrics *metrics.Manager

	// Workers is the number of background memorize workers; zero uses the
	// pool default.
	Workers uint

	// MCPAgent, when set, mounts the MCP tools for that agent on /mcp.
	MCPAgent string
}
