// Package configcmder provides the config command for managing persistent
// mnemo configuration stored in the .mnemo/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mnemo configuration.

Configuration is stored as config.toml in the .mnemo/ directory and provides
default values for command flags. CLI flags and MNEMO_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.root,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  llm.provider, llm.model, llm.target, llm.api_key,
  retrieve.method, retrieve.top_k_category, retrieve.top_k_item,
  retrieve.top_k_resource, retrieve.item_ranking, retrieve.recency_decay_days,
  metrics.enabled, metrics.listen, api.listen,
  events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  mnemo config set <key> <value>    Set a configuration value
  mnemo config get <key>            Get a configuration value
  mnemo config list                 List all configuration values

Examples:
  mnemo config set llm.provider anthropic
  mnemo config set retrieve.item_ranking salience
  mnemo config get embedding.model
  mnemo config list`

const configShortDesc string = "Manage persistent mnemo configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
