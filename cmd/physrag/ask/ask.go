// Package askcmder provides the ask command that answers a question from the
// indexed papers.
package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/api"
	"github.com/papercomputeco/physrag/cmd/physrag/clients"
	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/cliui"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/utils"
)

var (
	rankStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// ErrQueryFailed is returned when the API could not answer the question.
var ErrQueryFailed = errors.New("query failed")

type askCommander struct {
	question string
	direct   bool
	asJSON   bool

	// Registered flag targets; the resolved values are read from viper.
	apiTarget   string
	topK        uint
	llmProvider string
	llmTarget   string
	llmModel    string

	configDir string
	debug     bool
	out       io.Writer
	logger    *slog.Logger
}

var flagKeys = []string{
	config.FlagAPITarget,
	config.FlagTopK,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

const askLongDesc string = `Answer a question from the indexed physics papers.

By default the question is sent to a running physrag API server, which
retrieves the most relevant passages and asks the configured language model
to answer from them. Use --direct to run retrieval and generation in this
process instead, using the local configuration.

The answer is rendered as markdown followed by the passages it was drawn from.
If generation fails the retrieved passages are still listed.

Examples:
  physrag ask "What drives the accelerated expansion of the universe?"
  physrag ask "How are quasars powered?" --api-target http://localhost:8081
  physrag ask "What is dark energy?" --direct --top-k 8 --llm-model llama3.2
  physrag ask "What is dark energy?" --json`

const askShortDesc string = "Answer a question from the indexed papers"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]
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

	cmd.Flags().BoolVar(&cmder.direct, "direct", false, "Answer in this process instead of calling the API server")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw answer as JSON")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *askCommander) run(ctx context.Context, cfg *config.Config) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(os.Stderr),
	)

	var (
		resp *api.QueryResponse
		err  error
	)
	if c.direct {
		resp, err = c.askDirect(ctx, cfg)
	} else {
		resp, err = QueryAPI(ctx, cfg.Client.APITarget, c.question)
	}

	if resp != nil {
		if perr := c.print(resp); perr != nil {
			return perr
		}
	}
	return err
}

func (c *askCommander) askDirect(ctx context.Context, cfg *config.Config) (*api.QueryResponse, error) {
	stack, err := clients.NewStack(cfg, c.configDir, c.logger)
	if err != nil {
		return nil, err
	}
	defer stack.Close()

	if err := stack.WithAnswering(ctx); err != nil {
		return nil, err
	}

	result, err := stack.Service.Ask(ctx, c.question)
	if err != nil {
		resp := &api.QueryResponse{Question: c.question, Error: answer.UserMessage(err)}
		if result != nil {
			resp.Sources = result.Sources
		}
		return resp, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return &api.QueryResponse{
		Question: result.Question,
		Answer:   result.Text,
		Sources:  result.Sources,
	}, nil
}

func (c *askCommander) print(resp *api.QueryResponse) error {
	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Error != "" {
		fmt.Fprintf(c.out, "\n  %s\n", errStyle.Render(resp.Error))
	}

	if resp.Answer != "" {
		rendered, err := cliui.RenderMarkdown(resp.Answer)
		if err != nil {
			rendered = resp.Answer + "\n"
		}
		fmt.Fprint(c.out, rendered)
	}

	if len(resp.Sources) == 0 {
		return nil
	}

	fmt.Fprintf(c.out, "  %s\n\n", cliui.HeaderStyle.Render("Sources"))
	for i, s := range resp.Sources {
		fmt.Fprintf(c.out, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("[%d]", i+1)),
			titleStyle.Render(s.Title),
			scoreStyle.Render(fmt.Sprintf("score: %.4f", s.Score)),
		)
		fmt.Fprintf(c.out, "      %s\n", cliui.DimStyle.Render(fmt.Sprintf("%s chunk %d", s.DocumentID, s.ChunkIndex)))
		fmt.Fprintf(c.out, "      %s\n\n", utils.Truncate(utils.OneLine(s.TextExcerpt), 120))
	}
	return nil
}

// QueryAPI posts question to the physrag API and returns the parsed answer.
// On a generation failure the API still returns the retrieved sources, so
// the response is returned alongside the error.
func QueryAPI(ctx context.Context, apiTarget, question string) (*api.QueryResponse, error) {
	queryURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	queryURL.Path = "/v1/query"

	body, err := json.Marshal(api.QueryRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: clients.LLMTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to physrag API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var out api.QueryResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse query response: %w", err)
		}
		return &out, nil
	}

	// Generation failures carry a full QueryResponse; everything else is an
	// ErrorResponse with the same "error" field.
	var out api.QueryResponse
	if err := json.Unmarshal(data, &out); err != nil || out.Error == "" {
		return nil, fmt.Errorf("%w (HTTP %d): %s", ErrQueryFailed, resp.StatusCode, string(data))
	}
	if len(out.Sources) == 0 {
		return nil, fmt.Errorf("%w (HTTP %d): %s", ErrQueryFailed, resp.StatusCode, out.Error)
	}
	return &out, fmt.Errorf("%w (HTTP %d): %s", ErrQueryFailed, resp.StatusCode, out.Error)
}
