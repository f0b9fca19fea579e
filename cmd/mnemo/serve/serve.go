// Package servecmder provides the serve command, which runs the HTTP API
// over every agent's memory.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/api"
	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/config"
)

type serveCommander struct {
	mcpAgent string
	workers  uint
}

const serveLongDesc string = `Run the mnemo HTTP API server.

Endpoints:
  GET  /ping
  GET  /v1/agents
  GET  /v1/agents/:agent/categories
  GET  /v1/agents/:agent/retrieve?query=...
  POST /v1/agents/:agent/save
  POST /v1/agents/:agent/memorize[?async=true]
  GET  /v1/agents/:agent/export

With --mcp-agent the MCP tools for that agent are also served over
streamable HTTP on /mcp. When metrics are enabled they are served on
/metrics.

Examples:
  mnemo serve
  mnemo serve --listen :9000
  mnemo serve --mcp-agent alice
  mnemo serve --workers 4`

const serveShortDesc string = "Run the HTTP API server"

var serveFlags = []string{config.FlagAPIListen}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := boot.Load(cmd, boot.EngineFlags, boot.RetrieveFlags, serveFlags)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cmder.run(rt)
		},
	}

	cmd.Flags().StringVar(&cmder.mcpAgent, "mcp-agent", "", "Serve the MCP tools for this agent on /mcp")
	cmd.Flags().UintVar(&cmder.workers, "workers", 0, "Number of background memorize workers (0 uses the default)")
	boot.AddFlags(cmd, boot.EngineFlags, boot.RetrieveFlags, serveFlags)

	return cmd
}

func (c *serveCommander) run(rt *boot.Runtime) error {
	server, err := api.NewServer(api.Config{
		ListenAddr: rt.Config.API.Listen,
		Retrieve:   rt.RetrieveOptions(),
		Metrics:    rt.Metrics,
		Workers:    c.workers,
		MCPAgent:   c.mcpAgent,
	}, rt.Engine, rt.Logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		rt.Logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
