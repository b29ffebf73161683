package clients_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/cmd/physrag/clients"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/eventstream/nop"
	"github.com/papercomputeco/physrag/pkg/logger"
)

var _ = Describe("Stack", func() {
	var (
		cfg       *config.Config
		configDir string
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		configDir = GinkgoT().TempDir()
		cfg = config.NewDefaultConfig()
		cfg.VectorStore.Provider = "memory"
		cfg.Ledger.Provider = "memory"
	})

	It("builds the retrieval components", func() {
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s.WithRetrieval(ctx)).To(Succeed())
		Expect(s.Embedder.Model()).To(Equal("all-minilm"))
		Expect(s.Driver).NotTo(BeNil())
		Expect(s.Planner.Model()).To(Equal("all-minilm"))
	})

	It("builds the answer service on top of retrieval", func() {
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s.WithAnswering(ctx)).To(Succeed())
		Expect(s.Planner).NotTo(BeNil())
		Expect(s.Service).NotTo(BeNil())
		Expect(s.Completer.Model()).NotTo(BeEmpty())
	})

	It("defaults the sqlite ledger into the config dir", func() {
		cfg.Ledger.Provider = "sqlite"
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(s.WithLedger(ctx)).To(Succeed())
		Expect(s.Close()).To(Succeed())
		Expect(filepath.Join(configDir, "ledger.db")).To(BeAnExistingFile())
	})

	It("uses a no-op publisher when events are disabled", func() {
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s.WithPublisher()).To(Succeed())
		Expect(s.Publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("requires kafka brokers", func() {
		cfg.Events.Provider = "kafka"
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(s.WithPublisher()).To(MatchError(ContainSubstring("broker")))
	})

	It("rejects an invalid retry policy", func() {
		cfg.Retry.MaxDelay = "eventually"
		_, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("retry.max_delay")))
	})

	It("builds the configured chunker", func() {
		cfg.Chunking.ChunkSize = 50
		cfg.Chunking.ChunkOverlap = 10
		s, err := clients.NewStack(cfg, configDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		c, err := s.Chunker()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Size()).To(Equal(50))
		Expect(c.Overlap()).To(Equal(10))
	})
})

var _ = Describe("LoadConfig", func() {
	It("layers flags over the config file", func() {
		configDir := GinkgoT().TempDir()
		cfger, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("retrieval.top_k", "7")).To(Succeed())
		Expect(cfger.SetConfigValue("llm.model", "mistral")).To(Succeed())

		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("config-dir", configDir, "")
		var topK uint
		config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &topK)
		Expect(cmd.Flags().Set("top-k", "3")).To(Succeed())

		cfg, err := clients.LoadConfig(cmd, []string{config.FlagTopK})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Retrieval.TopK).To(Equal(uint(3)))
		Expect(cfg.LLM.Model).To(Equal("mistral"))
	})
})
