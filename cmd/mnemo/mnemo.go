// Package mnemocmder
package mnemocmder

import (
	"github.com/spf13/cobra"

	categoriescmder "github.com/papercomputeco/mnemo/cmd/mnemo/categories"
	configcmder "github.com/papercomputeco/mnemo/cmd/mnemo/config"
	exportcmder "github.com/papercomputeco/mnemo/cmd/mnemo/export"
	initcmder "github.com/papercomputeco/mnemo/cmd/mnemo/init"
	mcpcmder "github.com/papercomputeco/mnemo/cmd/mnemo/mcp"
	memorizecmder "github.com/papercomputeco/mnemo/cmd/mnemo/memorize"
	retrievecmder "github.com/papercomputeco/mnemo/cmd/mnemo/retrieve"
	savecmder "github.com/papercomputeco/mnemo/cmd/mnemo/save"
	servecmder "github.com/papercomputeco/mnemo/cmd/mnemo/serve"
	versioncmder "github.com/papercomputeco/mnemo/cmd/mnemo/version"
)

const mnemoLongDesc string = `Mnemo is long-term memory for your agents.

Each agent gets its own memory database. Conversations are distilled into
facts, repeated facts are reinforced instead of duplicated, and every fact is
filed under a fixed set of categories whose summaries evolve over time.

Write memories using:
  mnemo memorize   Extract memories from a conversation transcript
  mnemo save       Save a single fact

Read memories using:
  mnemo retrieve     Retrieve memories relevant to a query
  mnemo categories   List categories and their summaries
  mnemo export       Export all memories as Markdown

Run services using:
  mnemo serve   Run the HTTP API server
  mnemo mcp     Run an MCP server over stdio`

const mnemoShortDesc string = "Mnemo - Agent Memory"

func NewMnemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mnemo",
		Short:         mnemoShortDesc,
		Long:          mnemoLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mnemo/ directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(memorizecmder.NewMemorizeCmd())
	cmd.AddCommand(savecmder.NewSaveCmd())
	cmd.AddCommand(retrievecmder.NewRetrieveCmd())
	cmd.AddCommand(categoriescmder.NewCategoriesCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
