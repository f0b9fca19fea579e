// Package retrievecmder provides the retrieve command for querying an
// agent's long-term memory.
package retrievecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/engine"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const previewRunes = 120

type retrieveCommander struct {
	agentID string
	query   string
	jsonOut bool

	out io.Writer
}

const retrieveLongDesc string = `Retrieve memories relevant to a query.

Two methods are available:
  embedding   Rank categories, items and resources by vector similarity
              to the query (default).
  llm         Ask the chat model to pick the relevant categories, then the
              relevant items within them, then their source resources.

Items can be ranked by plain similarity or by salience, which also weighs
how often a memory was reinforced and how recently.

Examples:
  mnemo retrieve --agent alice "what does the user drink in the morning"
  mnemo retrieve --agent alice -m llm "upcoming trips"
  mnemo retrieve --agent alice --ranking salience -k 5 "music"
  mnemo retrieve --agent alice --json "music"`

const retrieveShortDesc string = "Retrieve relevant memories"

func NewRetrieveCmd() *cobra.Command {
	cmder := &retrieveCommander{}

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: retrieveShortDesc,
		Long:  retrieveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()

			rt, err := boot.Load(cmd, boot.EngineFlags, boot.RetrieveFlags)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cmder.run(cmd.Context(), rt.Engine, rt.RetrieveOptions())
		},
	}

	boot.AddAgentFlag(cmd, &cmder.agentID)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	boot.AddFlags(cmd, boot.EngineFlags, boot.RetrieveFlags)

	return cmd
}

func (c *retrieveCommander) run(ctx context.Context, eng *engine.Engine, opts engine.RetrieveOptions) error {
	result, err := eng.Retrieve(ctx, c.agentID, c.query, opts)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Categories)+len(result.Items)+len(result.Resources) == 0 {
		fmt.Fprintln(c.out, "No relevant memories found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n",
		headerStyle.Render("Memories for:"),
		nameStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	if len(result.Categories) > 0 {
		c.section("Categories")
		for i, cat := range result.Categories {
			c.line(i+1, cat.Score, nameStyle.Render(cat.Name), cat.Summary)
		}
	}

	if len(result.Items) > 0 {
		c.section("Items")
		for i, item := range result.Items {
			c.line(i+1, item.Score, dimStyle.Render(string(item.MemoryType)), item.Summary)
		}
	}

	if len(result.Resources) > 0 {
		c.section("Resources")
		for i, res := range result.Resources {
			caption := ""
			if res.Caption != nil {
				caption = *res.Caption
			}
			c.line(i+1, res.Score, dimStyle.Render(res.URL), caption)
		}
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *retrieveCommander) section(title string) {
	fmt.Fprintf(c.out, "\n  %s\n", headerStyle.Render(title))
}

func (c *retrieveCommander) line(rank int, score float64, label, text string) {
	fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("%.3f", score)),
		label,
		previewStyle.Render(preview(text)),
	)
}

// preview flattens text onto one line and truncates it.
func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
