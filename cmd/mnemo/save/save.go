// Package savecmder provides the save command for storing a single fact in
// an agent's long-term memory.
package savecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mnemo/cmd/mnemo/boot"
	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/cliui"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/memory"
)

type saveCommander struct {
	agentID    string
	content    string
	category   string
	memoryType string
	jsonOut    bool

	out io.Writer
}

const saveLongDesc string = `Save a fact to long-term memory.

The fact is stored as a memory item in the given category (default "user").
Saving a fact that already exists, ignoring case and whitespace, reinforces
the existing item instead of creating a duplicate.

Examples:
  mnemo save --agent alice "The user's name is Alice"
  mnemo save --agent alice --category preferences "Prefers oat milk"
  mnemo save --agent alice --type event "Moved to Lisbon in March 2024"`

const saveShortDesc string = "Save a fact to memory"

func NewSaveCmd() *cobra.Command {
	cmder := &saveCommander{}

	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: saveShortDesc,
		Long:  saveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.content = args[0]
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
	cmd.Flags().StringVarP(&cmder.category, "category", "c", "", "Category to file the fact under (default \"user\")")
	cmd.Flags().StringVarP(&cmder.memoryType, "type", "t", "", "Memory type (profile, event, knowledge, behavior, skill, tool)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	boot.AddFlags(cmd, boot.EngineFlags)

	_ = cmd.RegisterFlagCompletionFunc("category", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return categories.Names(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *saveCommander) run(ctx context.Context, eng *engine.Engine) error {
	result, err := eng.Save(ctx, c.agentID, engine.SaveInput{
		Content:    c.content,
		Category:   c.category,
		MemoryType: memory.MemoryType(c.memoryType),
	})
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	verb := "Saved"
	if result.Reinforced {
		verb = "Reinforced"
	}
	fmt.Fprintf(c.out, "%s %s %s %s\n",
		cliui.SuccessMark,
		verb,
		cliui.KeyStyle.Render(result.Category),
		cliui.ValueStyle.Render(result.Item.Summary),
	)
	return nil
}
