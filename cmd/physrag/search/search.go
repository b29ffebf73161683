// Package searchcmder provides the search command for semantic search over
// indexed paper passages.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/physrag/api/search"
	"github.com/papercomputeco/physrag/cmd/physrag/clients"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const previewLen = 160

type searchCommander struct {
	query  string
	quiet  bool
	direct bool

	// Registered flag targets; the resolved values are read from viper.
	apiTarget         string
	topK              uint
	embeddingProvider string
	embeddingModel    string
	vectorProvider    string
	vectorTarget      string
	collection        string

	configDir string
	debug     bool
	out       io.Writer
	logger    *slog.Logger
}

var flagKeys = []string{
	config.FlagAPITarget,
	config.FlagTopK,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
}

const searchLongDesc string = `Search the indexed papers without generating an answer.

Embeds the query, ranks the indexed passages by similarity and prints the best
matches with their paper title, chunk position and score. By default the
search runs against a physrag API server; --direct searches the local vector
store instead.

Use --quiet to output only chunk ids, one per line.

Examples:
  physrag search "cosmic microwave background anisotropy"
  physrag search "black hole entropy" --top-k 10
  physrag search "dark matter halos" --direct --vector-store-provider qdrant
  physrag search "neutrino oscillation" --quiet`

const searchShortDesc string = "Search indexed paper passages"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := clients.LoadConfig(cmd, flagKeys)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only chunk ids, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.direct, "direct", false, "Search the local vector store instead of calling the API server")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)

	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, cfg *config.Config) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(os.Stderr),
	)

	topK := int(cfg.Retrieval.TopK)

	var (
		output *apisearch.Output
		err    error
	)
	if c.direct {
		output, err = c.searchDirect(ctx, cfg, topK)
	} else {
		output, err = SearchAPI(ctx, cfg.Client.APITarget, c.query, topK)
	}
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(c.out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(c.out, result.ID)
		}
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *searchCommander) searchDirect(ctx context.Context, cfg *config.Config, topK int) (*apisearch.Output, error) {
	stack, err := clients.NewStack(cfg, c.configDir, c.logger)
	if err != nil {
		return nil, err
	}
	defer stack.Close()

	if err := stack.WithRetrieval(ctx); err != nil {
		return nil, err
	}

	return apisearch.NewSearcher(stack.Planner, c.logger).Search(ctx, c.query, topK)
}

func (c *searchCommander) printResult(rank int, result apisearch.Result) {
	fmt.Fprintf(c.out, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		idStyle.Render(result.ID),
	)
	fmt.Fprintf(c.out, "  %s %s\n",
		titleStyle.Render(result.Title),
		dimStyle.Render(fmt.Sprintf("(%s, chunk %d)", result.DocumentID, result.ChunkIndex)),
	)

	text := utils.OneLine(result.Text)
	if text == "" {
		text = "(no text content)"
	}
	fmt.Fprintf(c.out, "  %s\n\n", previewStyle.Render(utils.Truncate(text, previewLen)))
}

// SearchAPI calls the physrag search API and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*apisearch.Output, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to physrag API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output apisearch.Output
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
