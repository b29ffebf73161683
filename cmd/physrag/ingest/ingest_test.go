package ingestcmder_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	ingestcmder "github.com/papercomputeco/physrag/cmd/physrag/ingest"
	"github.com/papercomputeco/physrag/pkg/dotdir"
	"github.com/papercomputeco/physrag/pkg/ingest"
	"github.com/papercomputeco/physrag/pkg/ledger/sqlite"
	testutils "github.com/papercomputeco/physrag/pkg/utils/test"
)

const papers = `[
	{"arxiv_id": "1110.2569v3", "filename": "1110.2569v3.pdf", "num_pages": 1,
	 "metadata": {"title": "Dark Energy"}, "full_text": "the expansion of the universe is accelerating"},
	{"document_id": "2001.00001v1", "title": "Quasars", "num_pages": 1,
	 "pages": [{"page_number": 1, "text": "a quasar is an active galactic nucleus"}]},
	{"arxiv_id": "", "full_text": "no identifier at all"}
]`

// newTestCmd wires the persistent flags the root command normally provides.
func newTestCmd() *cobra.Command {
	cmd := ingestcmder.NewIngestCmd()
	cmd.Flags().Bool("debug", false, "")
	cmd.Flags().String("config-dir", "", "")
	cmd.SetArgs([]string{})
	return cmd
}

var _ = Describe("NewIngestCmd", func() {
	It("requires exactly one path", func() {
		cmd := ingestcmder.NewIngestCmd()
		Expect(cmd.Args(cmd, []string{})).NotTo(Succeed())
		Expect(cmd.Args(cmd, []string{"a"})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"a", "b"})).NotTo(Succeed())
	})

	It("registers the pipeline flags", func() {
		cmd := ingestcmder.NewIngestCmd()
		for _, name := range []string{
			"watch", "resume", "debounce", "log-file", "chunk-size", "chunk-overlap", "workers",
			"embedding-provider", "embedding-model", "embedding-dimensions",
			"vector-store-provider", "vector-store-target", "collection",
			"ledger-provider", "ledger-target", "events-provider", "events-brokers",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("debounce").DefValue).To(Equal(ingest.DefaultDebounce.String()))
		Expect(cmd.Flags().Lookup("chunk-size").DefValue).To(Equal("500"))
	})
})

var _ = Describe("Ingest command execution", func() {
	var (
		configDir string
		input     string
		ollama    *testutils.OllamaServer
	)

	BeforeEach(func() {
		tmp := GinkgoT().TempDir()
		configDir = filepath.Join(tmp, ".physrag")
		input = filepath.Join(tmp, "all_papers.json")
		Expect(os.WriteFile(input, []byte(papers), 0o600)).To(Succeed())

		ollama = testutils.NewOllamaServer(8, "")
		DeferCleanup(ollama.Close)

		GinkgoT().Setenv("PHYSRAG_EMBEDDING_PROVIDER", "ollama")
		GinkgoT().Setenv("PHYSRAG_EMBEDDING_TARGET", ollama.URL)
		GinkgoT().Setenv("PHYSRAG_EMBEDDING_DIMENSIONS", "8")
		GinkgoT().Setenv("PHYSRAG_VECTOR_STORE_PROVIDER", "memory")
		GinkgoT().Setenv("PHYSRAG_LEDGER_PROVIDER", "sqlite")
		GinkgoT().Setenv("PHYSRAG_EVENTS_PROVIDER", "none")
		GinkgoT().Setenv("PHYSRAG_RETRY_MAX_ATTEMPTS", "1")
		GinkgoT().Setenv("PHYSRAG_RETRY_INITIAL_DELAY", "1ms")
	})

	run := func(args ...string) error {
		cmd := newTestCmd()
		cmd.SetArgs(append(args, "--config-dir", configDir))
		return cmd.Execute()
	}

	openLedger := func() *sqlite.Store {
		store, err := sqlite.NewStore(context.Background(), filepath.Join(configDir, dotdir.LedgerDBName))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		return store
	}

	It("indexes every valid record and records the run", func() {
		Expect(run(input)).To(Succeed())
		Expect(ollama.EmbedCalls()).To(BeNumerically(">=", 1))

		run, err := openLedger().LatestRun(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Source).To(Equal(input))
		Expect(run.Succeeded).To(Equal(2))
		Expect(run.Failed).To(Equal(0))
		Expect(run.Written).To(Equal(run.Chunks))
	})

	It("writes a JSON run log when --log-file is set", func() {
		logPath := filepath.Join(GinkgoT().TempDir(), "ingest.jsonl")
		Expect(run(input, "--log-file", logPath)).To(Succeed())

		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())

		var finished map[string]any
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			var record map[string]any
			Expect(json.Unmarshal([]byte(line), &record)).To(Succeed())
			if record["msg"] == "ingestion finished" {
				finished = record
			}
		}
		Expect(finished).NotTo(BeNil())

		summary, ok := finished["summary"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(summary["succeeded"]).To(BeNumerically("==", 2))
	})

	It("fails when documents fail and resumes only those documents", func() {
		ollama.SetFailOn("quasar")

		err := run(input)
		Expect(err).To(MatchError(ingestcmder.ErrDocumentsFailed))

		store := openLedger()
		first, err := store.LatestRun(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Failed).To(Equal(1))

		failures, err := store.FailedChunks(context.Background(), first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(failures).NotTo(BeEmpty())
		Expect(failures[0].DocumentID).To(Equal("2001.00001v1"))

		ollama.SetFailOn("")
		Expect(run(input, "--resume")).To(Succeed())

		second, err := store.LatestRun(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).NotTo(Equal(first.ID))
		Expect(second.Documents).To(Equal(1))
		Expect(second.Succeeded).To(Equal(1))
	})

	It("refuses to resume without a previous run", func() {
		err := run(input, "--resume")
		Expect(err).To(MatchError(ingest.ErrNoPreviousRun))
	})

	It("errors on a missing input path", func() {
		Expect(run(filepath.Join(configDir, "missing.json"))).NotTo(Succeed())
	})
})
