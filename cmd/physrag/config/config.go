// Package configcmder provides the config command for managing persistent
// physrag configuration stored in the .physrag/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent physrag configuration.

Configuration is stored as config.toml in the .physrag/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  chunking.*       chunk_size, chunk_overlap, min_chars
  embedding.*      provider, target, model, dimensions, batch_size,
                   requests_per_second
  vector_store.*   provider, target, collection, batch_size, max_in_flight
  retrieval.*      top_k, min_score
  llm.*            provider, target, model, temperature, max_tokens
  api.listen, client.api_target
  ledger.*         provider, target
  events.*         provider, brokers, topic
  ingest.workers
  retry.*          max_attempts, initial_delay, max_delay

Use subcommands to get, set, or list configuration values:
  physrag config set <key> <value>    Set a configuration value
  physrag config get <key>            Get a configuration value
  physrag config list                 List all configuration values

Examples:
  physrag config set llm.provider anthropic
  physrag config set vector_store.provider qdrant
  physrag config get embedding.model
  physrag config list`

const configShortDesc string = "Manage persistent physrag configuration"

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
