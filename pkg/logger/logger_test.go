package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/logger"
)

func parseJSONLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records with attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("document chunked", "document_id", "1110.2569v3")

			Expect(buf.String()).To(ContainSubstring("document chunked"))
			Expect(buf.String()).To(ContainSubstring("1110.2569v3"))
		})

		It("filters debug records unless debug is enabled", func() {
			var quiet, loud bytes.Buffer
			logger.New(logger.WithWriter(&quiet)).Debug("hidden")
			logger.New(logger.WithWriter(&loud), logger.WithDebug(true)).Debug("shown")

			Expect(quiet.String()).To(BeEmpty())
			Expect(loud.String()).To(ContainSubstring("shown"))
		})

		It("emits JSON when requested", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
			l.Info("batch upserted", "count", 100)

			parsed := parseJSONLine(&buf)
			Expect(parsed["msg"]).To(Equal("batch upserted"))
			Expect(parsed["count"]).To(BeNumerically("==", 100))
		})

		It("renders pretty output through the charm handler", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatPretty))
			l.Info("ingestion complete")

			Expect(buf.String()).To(ContainSubstring("ingestion complete"))
		})

		It("fans out to multiple writers", func() {
			var a, b bytes.Buffer
			logger.New(logger.WithWriters(&a, &b)).Info("multi")

			Expect(a.String()).To(ContainSubstring("multi"))
			Expect(b.String()).To(ContainSubstring("multi"))
		})

		It("nests grouped attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
			l.WithGroup("query").Info("planned", "top_k", 5)

			group, ok := parseJSONLine(&buf)["query"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["top_k"]).To(BeNumerically("==", 5))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() { l.With("k", "v").Info("msg") }).NotTo(Panic())
		})
	})

	DescribeTable("ParseFormat",
		func(in string, want logger.Format) {
			got, err := logger.ParseFormat(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty is text", "", logger.FormatText),
		Entry("pretty", "pretty", logger.FormatPretty),
		Entry("case insensitive json", " JSON ", logger.FormatJSON),
	)

	It("rejects an unknown format", func() {
		_, err := logger.ParseFormat("xml")
		Expect(err).To(MatchError(ContainSubstring("unknown log format")))
	})

	Describe("Tee", func() {
		It("writes every record through all loggers", func() {
			var terminal, runLog bytes.Buffer
			tee := logger.Tee(
				logger.New(logger.WithWriter(&terminal)),
				logger.New(logger.WithWriter(&runLog), logger.WithFormat(logger.FormatJSON)),
			)
			tee.With("run_id", "r1").Info("ingestion started")

			Expect(terminal.String()).To(ContainSubstring("ingestion started"))
			Expect(parseJSONLine(&runLog)["run_id"]).To(Equal("r1"))
		})

		It("applies each logger's own level", func() {
			var terminal, runLog bytes.Buffer
			tee := logger.Tee(
				logger.New(logger.WithWriter(&terminal)),
				logger.New(logger.WithWriter(&runLog), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true)),
			)
			tee.Debug("chunk embedded")

			Expect(terminal.String()).To(BeEmpty())
			Expect(parseJSONLine(&runLog)["msg"]).To(Equal("chunk embedded"))
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			tee := logger.Tee(nil, logger.New(logger.WithWriter(&buf)))
			tee.Info("only one")
			Expect(buf.String()).To(ContainSubstring("only one"))
		})
	})
})
