// Package categoriescmder provides the categories command, which lists an
// agent's memory categories with their item counts and summaries.
package categoriescmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/engine"
)

const summaryPreviewWidth = 80

type categoriesCommander struct {
	agentID string
	jsonOut bool

	out io.Writer
}

const categoriesLongDesc string = `List an agent's memory categories.

Every agent starts with the same fixed set of categories. For each one the
command shows how many memory items are filed under it and the first line of
its evolving summary.

Examples:
  mnemo categories --agent alice
  mnemo categories --agent alice --json`

const categoriesShortDesc string = "List memory categories"

func NewCategoriesCmd() *cobra.Command {
	cmder := &categoriesCommander{}

	cmd := &cobra.Command{
		Use:   "categories",
		Short: categoriesShortDesc,
		Long:  categoriesLongDesc,
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
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the categories as JSON")
	boot.AddFlags(cmd, boot.EngineFlags)

	return cmd
}

func (c *categoriesCommander) run(ctx context.Context, eng *engine.Engine) error {
	cats, err := eng.Categories(ctx, c.agentID)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(cats)
	}

	width := 0
	for _, cat := range cats {
		width = max(width, len(cat.Name))
	}

	fmt.Fprintln(c.out)
	for _, cat := range cats {
		summary := cliui.DimStyle.Render("(no summary yet)")
		if line := firstLine(cat.Summary); line != "" {
			summary = cliui.ValueStyle.Render(line)
		}
		fmt.Fprintf(c.out, "  %s  %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, cat.Name)),
			cliui.StepStyle.Render(fmt.Sprintf("%4d items", cat.ItemCount)),
			summary,
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

// firstLine returns the first non-blank line of s with Markdown heading
// markers removed, truncated for display.
func firstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		return ansi.Truncate(line, summaryPreviewWidth, "...")
	}
	return ""
}
