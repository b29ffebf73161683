package servecmder_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/api"
	servecmder "github.com/papercomputeco/physrag/cmd/physrag/serve"
	"github.com/papercomputeco/physrag/pkg/answer"
	testutils "github.com/papercomputeco/physrag/pkg/utils/test"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return addr
}

var _ = Describe("NewServeCmd", func() {
	It("takes no arguments", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("defaults --listen to the configured address", func() {
		cmd := servecmder.NewServeCmd()
		f := cmd.Flags().Lookup("listen")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("l"))
		Expect(f.DefValue).To(Equal(":8081"))
	})
})

var _ = Describe("Serve command execution", func() {
	var (
		addr   string
		cancel context.CancelFunc
		done   chan error
	)

	start := func(args ...string) {
		ollama := testutils.NewOllamaServer(8, "unused")
		DeferCleanup(ollama.Close)

		GinkgoT().Setenv("PHYSRAG_EMBEDDING_PROVIDER", "ollama")
		GinkgoT().Setenv("PHYSRAG_EMBEDDING_TARGET", ollama.URL)
		GinkgoT().Setenv("PHYSRAG_EMBEDDING_DIMENSIONS", "8")
		GinkgoT().Setenv("PHYSRAG_VECTOR_STORE_PROVIDER", "memory")
		GinkgoT().Setenv("PHYSRAG_LLM_PROVIDER", "ollama")
		GinkgoT().Setenv("PHYSRAG_LLM_TARGET", ollama.URL)
		GinkgoT().Setenv("PHYSRAG_LLM_MODEL", "llama3.2")

		addr = freeAddr()
		cmd := servecmder.NewServeCmd()
		cmd.Flags().Bool("debug", false, "")
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.SetArgs(append([]string{"--listen", addr}, args...))

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- cmd.ExecuteContext(ctx)
		}()

		Eventually(func() error {
			resp, err := http.Get("http://" + addr + "/ping")
			if err == nil {
				resp.Body.Close()
			}
			return err
		}, 5*time.Second, 50*time.Millisecond).Should(Succeed())
	}

	stop := func() {
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	}

	It("serves index stats and shuts down when the context ends", func() {
		start()
		defer stop()

		resp, err := http.Get("http://" + addr + "/v1/index/stats")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var stats api.IndexStats
		Expect(json.NewDecoder(resp.Body).Decode(&stats)).To(Succeed())
		Expect(stats.Count).To(Equal(0))
		Expect(stats.Model).To(Equal("all-minilm"))
		Expect(stats.Dimensions).To(Equal(8))
	})

	It("answers that there is not enough information for an empty index", func() {
		start()
		defer stop()

		resp, err := http.Post("http://"+addr+"/v1/query", "application/json",
			strings.NewReader(`{"question": "what is dark energy?"}`))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out api.QueryResponse
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
		Expect(out.Answer).To(Equal(answer.InsufficientInformation))
		Expect(out.Sources).To(BeEmpty())
	})

	It("rejects questions in search-only mode", func() {
		start("--search-only", "--no-mcp")
		defer stop()

		resp, err := http.Post("http://"+addr+"/v1/query", "application/json",
			strings.NewReader(`{"question": "what is dark energy?"}`))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))

		mcp, err := http.Get("http://" + addr + "/mcp")
		Expect(err).NotTo(HaveOccurred())
		defer mcp.Body.Close()
		Expect(mcp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
