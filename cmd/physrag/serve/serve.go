// Package servecmder provides the serve command that runs the physrag API
// and MCP server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/api"
	"github.com/papercomputeco/physrag/cmd/physrag/clients"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/logger"
)

type serveCommander struct {
	noMCP      bool
	logFormat  string
	searchOnly bool

	// Registered flag targets; the resolved values are read from viper.
	listen            string
	topK              uint
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	vectorProvider    string
	vectorTarget      string
	collection        string
	llmProvider       string
	llmTarget         string
	llmModel          string

	configDir string
	debug     bool
	logger    *slog.Logger
}

var flagKeys = []string{
	config.FlagAPIListen,
	config.FlagTopK,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

const serveLongDesc string = `Run the physrag API server.

Serves question answering and retrieval over HTTP:

  POST /v1/query         answer a question with cited sources
  GET  /v1/search        retrieval only, ranked passages
  GET  /v1/index/stats   indexed chunk count and embedding model
  GET  /ping             health check
  /mcp                   MCP server exposing "ask" and "search" tools

If the language model cannot be configured the server still starts and
/v1/query answers 503 until it is fixed. Use --search-only to skip the
language model entirely.

Examples:
  physrag serve
  physrag serve --listen :9090 --llm-provider openai --llm-model gpt-4o-mini
  physrag serve --vector-store-provider qdrant --vector-store-target localhost:6334
  physrag serve --search-only --no-mcp
  physrag serve --log-format json`

const serveShortDesc string = "Run the physrag API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP server at /mcp")
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatPretty), "Log format: pretty, text or json")
	cmd.Flags().BoolVar(&cmder.searchOnly, "search-only", false, "Serve retrieval only, without a language model")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *config.Config) error {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return err
	}
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(format),
		logger.WithWriter(os.Stderr),
	)

	stack, err := clients.NewStack(cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.WithRetrieval(ctx); err != nil {
		return err
	}

	apiConfig := api.Config{
		ListenAddr:     cfg.API.Listen,
		Planner:        stack.Planner,
		VectorDriver:   stack.Driver,
		EmbeddingModel: stack.Embedder.Model(),
		Dimensions:     int(cfg.Embedding.Dimensions),
		DisableMCP:     c.noMCP,
	}

	if !c.searchOnly {
		if err := stack.WithAnswering(ctx); err != nil {
			c.logger.Error("question answering disabled", "error", err)
		} else {
			apiConfig.Asker = stack.Service
		}
	}

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	if err := server.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
