// Package physragcmder is the root physrag command.
package physragcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/physrag/cmd/physrag/ask"
	configcmder "github.com/papercomputeco/physrag/cmd/physrag/config"
	ingestcmder "github.com/papercomputeco/physrag/cmd/physrag/ingest"
	initcmder "github.com/papercomputeco/physrag/cmd/physrag/init"
	searchcmder "github.com/papercomputeco/physrag/cmd/physrag/search"
	servecmder "github.com/papercomputeco/physrag/cmd/physrag/serve"
	versioncmder "github.com/papercomputeco/physrag/cmd/version"
)

const physragLongDesc string = `physrag answers questions about a corpus of physics papers.

Index extractor output, then ask questions grounded in the indexed passages:
  physrag ingest ./papers       Chunk, embed and index extracted papers
  physrag ask "what is ..."     Answer a question with cited sources
  physrag search "..."          Show the most relevant passages
  physrag serve                 Run the HTTP API and MCP server`

const physragShortDesc string = "physrag - retrieval augmented answers over physics papers"

func NewPhysragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "physrag",
		Short:         physragShortDesc,
		Long:          physragLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .physrag/ config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
