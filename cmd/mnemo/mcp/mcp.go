// Package mcpcmder provides the mcp command, which serves an agent's memory
// as MCP tools over stdio.
package mcpcmder

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	memorymcp "github.com/papercomputeco/mnemo/api/mcp"
	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/config"
)

type mcpCommander struct {
	agentID string
}

const mcpLongDesc string = `Run an MCP server over stdio for one agent's memory.

The server exposes three tools:
  memory_save       Save a fact to long-term memory
  memory_search     Search long-term memory for relevant facts
  memory_memorize   Extract memories from a conversation

Point an MCP client at this command, for example:
  {"command": "mnemo", "args": ["mcp", "--agent", "alice"]}

When metrics.listen is configured (or --metrics-listen is passed) and
metrics are enabled, Prometheus metrics are served on that address while
the MCP server runs.

Examples:
  mnemo mcp --agent alice
  mnemo mcp --agent alice -m llm --metrics-listen :9090`

const mcpShortDesc string = "Run the stdio MCP server"

var mcpFlags = []string{config.FlagMetricsListen}

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := boot.Load(cmd, boot.EngineFlags, boot.RetrieveFlags, mcpFlags)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cmder.run(cmd.Context(), rt)
		},
	}

	boot.AddAgentFlag(cmd, &cmder.agentID)
	boot.AddFlags(cmd, boot.EngineFlags, boot.RetrieveFlags, mcpFlags)

	return cmd
}

func (c *mcpCommander) run(ctx context.Context, rt *boot.Runtime) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := memorymcp.NewServer(memorymcp.Config{
		Memory:   rt.Engine,
		AgentID:  c.agentID,
		Retrieve: rt.RetrieveOptions(),
		Logger:   rt.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if listen := rt.Config.Metrics.Listen; listen != "" && rt.Metrics.Enabled() {
		go func() {
			if err := rt.Metrics.Serve(ctx, listen); err != nil {
				rt.Logger.Error("metrics server stopped", "listen", listen, "error", err)
			}
		}()
	}

	rt.Logger.Info("starting MCP server", "agent_id", c.agentID, "transport", "stdio")
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
