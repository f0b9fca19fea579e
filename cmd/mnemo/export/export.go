// Package exportcmder provides the export command, which writes an agent's
// memory as a Markdown document.
package exportcmder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/engine"
)

type exportCommander struct {
	agentID string
	output  string
	stdout  bool
	render  bool

	out io.Writer
}

const exportLongDesc string = `Export an agent's memory as Markdown.

The export lists every category summary followed by the memory items grouped
by category. By default it is written to outputs/memory_export.md inside the
agent's directory.

Use --stdout to print the raw Markdown instead of writing a file, or --render
to also display the written export formatted for the terminal.

Examples:
  mnemo export --agent alice
  mnemo export --agent alice --output ./alice.md
  mnemo export --agent alice --render
  mnemo export --agent alice --stdout > alice.md`

const exportShortDesc string = "Export memory as Markdown"

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()

			rt, err := boot.Load(cmd, boot.EngineFlags)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cmder.run(cmd.Context(), rt.Engine)
		},
	}

	boot.AddAgentFlag(cmd, &cmder.agentID)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "File to write (default: <agent dir>/outputs/memory_export.md)")
	cmd.Flags().BoolVar(&cmder.stdout, "stdout", false, "Print the raw Markdown instead of writing a file")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Display the export formatted for the terminal")
	cmd.MarkFlagsMutuallyExclusive("stdout", "output")
	boot.AddFlags(cmd, boot.EngineFlags)

	return cmd
}

func (c *exportCommander) run(ctx context.Context, eng *engine.Engine) error {
	if c.stdout {
		var buf bytes.Buffer
		if err := eng.Export(ctx, c.agentID, &buf); err != nil {
			return err
		}
		return c.print(buf.String())
	}

	path, err := eng.ExportToFile(ctx, c.agentID, c.output)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s Exported memory to %s\n", cliui.SuccessMark, cliui.DimStyle.Render(path))

	if !c.render {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	return c.print(string(data))
}

func (c *exportCommander) print(markdown string) error {
	if c.render {
		rendered, err := cliui.RenderMarkdown(markdown)
		if err != nil {
			return fmt.Errorf("rendering export: %w", err)
		}
		markdown = rendered
	}
	_, err := io.WriteString(c.out, markdown)
	return err
}
