// Package ingestcmder provides the ingest command that indexes extractor output.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/cmd/physrag/clients"
	"github.com/papercomputeco/physrag/pkg/cliui"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/document"
	"github.com/papercomputeco/physrag/pkg/ingest"
	"github.com/papercomputeco/physrag/pkg/logger"
)

var (
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ErrDocumentsFailed is returned when a run finished with failed documents.
var ErrDocumentsFailed = errors.New("some documents failed to index")

type ingestCommander struct {
	path     string
	watch    bool
	resume   bool
	debounce time.Duration
	logFile  string

	// Registered flag targets; the resolved values are read from viper.
	chunkSize         uint
	chunkOverlap      uint
	workers           uint
	dims              uint
	embeddingProvider string
	embeddingModel    string
	vectorProvider    string
	vectorTarget      string
	collection        string
	ledgerProvider    string
	ledgerTarget      string
	eventsProvider    string
	eventsBrokers     string

	configDir string
	debug     bool
	logger    *slog.Logger
}

var flagKeys = []string{
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagWorkers,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagLedgerProv,
	config.FlagLedgerTgt,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
}

const ingestLongDesc string = `Index extracted papers into the vector store.

Reads extractor output (a JSON array such as all_papers.json, a single paper
record, or a directory of *.json files), splits every paper into overlapping
word windows, embeds them and writes them to the configured vector store.
Malformed records are skipped and counted. Every run is recorded in the run
ledger together with the chunks that failed to embed or write.

Use --resume to re-ingest only the documents that failed in the most recent
run. Use --watch to keep running and re-ingest files as they change.

Examples:
  physrag ingest ./extracted/all_papers.json
  physrag ingest ./extracted --workers 4 --chunk-size 300 --chunk-overlap 50
  physrag ingest ./extracted --resume
  physrag ingest ./extracted --log-file ingest.jsonl
  physrag ingest ./extracted --watch --events-provider kafka --events-brokers localhost:9092`

const ingestShortDesc string = "Index extracted papers"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]

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

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Keep running and re-ingest changed *.json files")
	cmd.Flags().BoolVar(&cmder.resume, "resume", false, "Only re-ingest documents that failed in the latest run")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", ingest.DefaultDebounce, "Quiet period before re-ingesting watched files")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append a JSON run log, including debug records, to this file")

	config.AddUintFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.dims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagLedgerProv, &cmder.ledgerProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLedgerTgt, &cmder.ledgerTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, cfg *config.Config) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(os.Stderr),
	)

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Tee(c.logger, logger.New(
			logger.WithDebug(true),
			logger.WithFormat(logger.FormatJSON),
			logger.WithWriter(f),
		))
	}

	stack, err := clients.NewStack(cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	err = cliui.Step(os.Stdout, "Connecting to embedder and vector store", func() error {
		if err := stack.WithRetrieval(ctx); err != nil {
			return err
		}
		if err := stack.WithLedger(ctx); err != nil {
			return err
		}
		return stack.WithPublisher()
	})
	if err != nil {
		return err
	}

	pipeline, err := c.newPipeline(stack)
	if err != nil {
		return err
	}

	records, err := c.load(c.path)
	if err != nil {
		return err
	}

	if c.resume {
		records, err = c.pending(ctx, stack, records)
		if err != nil {
			return err
		}
	}

	summary, err := c.ingest(ctx, pipeline, records)
	if err != nil {
		return err
	}

	if !c.watch {
		if summary.Failed > 0 {
			return fmt.Errorf("%w: %d of %d; rerun with --resume", ErrDocumentsFailed, summary.Failed, summary.Documents)
		}
		return nil
	}

	return c.watchDir(ctx, pipeline)
}

func (c *ingestCommander) newPipeline(stack *clients.Stack) (*ingest.Pipeline, error) {
	chk, err := stack.Chunker()
	if err != nil {
		return nil, err
	}

	return ingest.NewPipeline(ingest.Config{
		Chunker:     chk,
		Embedder:    stack.Embedder,
		Writer:      stack.Writer(),
		Ledger:      stack.Ledger,
		Publisher:   stack.Publisher,
		NumWorkers:  stack.Config.Ingest.Workers,
		Source:      c.path,
		VectorStore: stack.Config.VectorStore.Provider,
		Logger:      c.logger,
	})
}

func (c *ingestCommander) load(path string) ([]document.Record, error) {
	var result *document.LoadResult
	err := cliui.Step(os.Stdout, "Loading extractor records from "+path, func() error {
		var err error
		result, err = document.LoadRecords(path)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, s := range result.Skipped {
		c.logger.Warn("skipped extractor file", "path", s.Path, "error", s.Err)
	}
	return result.Records, nil
}

func (c *ingestCommander) pending(ctx context.Context, stack *clients.Stack, records []document.Record) ([]document.Record, error) {
	pending, run, err := ingest.Resume(ctx, stack.Ledger, records)
	if errors.Is(err, ingest.ErrNoPreviousRun) {
		return nil, fmt.Errorf("nothing to resume: %w", err)
	}
	if err != nil {
		return nil, err
	}

	fmt.Printf("\n  %s %s %s\n",
		labelStyle.Render("Resuming run"),
		cliui.KeyStyle.Render(run.ID),
		labelStyle.Render(fmt.Sprintf("(%d documents with failures)", len(pending))),
	)
	return pending, nil
}

func (c *ingestCommander) ingest(ctx context.Context, pipeline *ingest.Pipeline, records []document.Record) (*ingest.Summary, error) {
	var summary *ingest.Summary
	err := cliui.Step(os.Stdout, fmt.Sprintf("Indexing %d documents", len(records)), func() error {
		var err error
		summary, err = pipeline.Run(ctx, records)
		return err
	})
	if summary != nil {
		printSummary(summary)
	}
	return summary, err
}

func (c *ingestCommander) watchDir(ctx context.Context, pipeline *ingest.Pipeline) error {
	dir := c.path
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	w, err := ingest.NewWatcher(dir, c.debounce, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Watching "+dir+" for changes (Ctrl+C to stop)"))

	return w.Run(ctx, func(ctx context.Context, paths []string) error {
		var records []document.Record
		for _, p := range paths {
			rs, err := c.load(p)
			if err != nil {
				c.logger.Warn("could not load changed file", "path", p, "error", err)
				continue
			}
			records = append(records, rs...)
		}
		if len(records) == 0 {
			return nil
		}

		_, err := c.ingest(ctx, pipeline, records)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			c.logger.Error("ingest run failed", "error", err)
		}
		return nil
	})
}

func printSummary(s *ingest.Summary) {
	fmt.Printf("\n  %s %s\n", cliui.HeaderStyle.Render("Run"), cliui.DimStyle.Render(s.RunID))
	line := func(label string, n int, style lipgloss.Style) {
		fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), style.Render(fmt.Sprintf("%d", n)))
	}

	line("documents", s.Documents, countStyle)
	line("succeeded", s.Succeeded, countStyle)
	line("skipped", s.Skipped, cliui.WarnStyle)
	failed := countStyle
	if s.Failed > 0 {
		failed = failStyle
	}
	line("failed", s.Failed, failed)
	line("chunks", s.Chunks, countStyle)
	line("written", s.Written, countStyle)

	if n := len(s.FailedChunks); n > 0 {
		fmt.Printf("  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d chunk failures recorded in the ledger", n)))
	}
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(cliui.FormatDuration(s.FinishedAt.Sub(s.StartedAt))))
}
