package document_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/chunker"
	"github.com/papercomputeco/physrag/pkg/document"
)

var _ = Describe("Record", func() {
	Describe("Parse", func() {
		It("decodes a list of records", func() {
			records, err := document.Parse([]byte(`[
				{"arxiv_id": "1110.2569v3", "filename": "1110.2569v3.pdf", "num_pages": 2, "metadata": {"title": "Dark Energy"}, "full_text": "hello world"},
				{"document_id": "2001.00001v1", "title": "Gravity", "pages": [{"page_number": 1, "text": "a b"}]}
			]`))
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID()).To(Equal("1110.2569v3"))
			Expect(records[1].ID()).To(Equal("2001.00001v1"))
		})

		It("decodes a single record object", func() {
			records, err := document.Parse([]byte(`{"arxiv_id": "x1", "full_text": "t"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("rejects empty input", func() {
			_, err := document.Parse([]byte("  "))
			Expect(err).To(MatchError(document.ErrExtraction))
		})

		It("rejects invalid JSON", func() {
			_, err := document.Parse([]byte(`[{"arxiv_id": `))
			Expect(err).To(MatchError(document.ErrExtraction))
		})
	})

	Describe("Split", func() {
		It("prefers per-page text over full_text", func() {
			one, two := "first page", "second page"
			full := "ignored"
			r := document.Record{
				DocumentID: "d1",
				FullText:   &full,
				Pages: []document.RecordPage{
					{PageNumber: 1, Text: &one},
					{PageNumber: 2, Text: &two},
				},
			}

			doc, rec := r.Split()
			Expect(doc.ID).To(Equal("d1"))
			Expect(doc.NumPages).To(Equal(2))
			Expect(rec.Pages).To(HaveLen(2))
			Expect(rec.Text()).To(Equal("first page\n\nsecond page"))
		})

		It("falls back to full_text as a single page", func() {
			full := "whole paper"
			r := document.Record{ArxivID: "a1", Filename: "a1.pdf", NumPages: 7, FullText: &full}

			doc, rec := r.Split()
			Expect(doc.SourceRef).To(Equal("a1.pdf"))
			Expect(doc.NumPages).To(Equal(7))
			Expect(rec.DocumentID).To(Equal("a1"))
			Expect(rec.Pages).To(Equal([]document.Page{{PageNumber: 1, Text: "whole paper"}}))
		})

		It("uses the metadata title and falls back to Unknown", func() {
			full := "x"
			withMeta := document.Record{ArxivID: "a", FullText: &full, Metadata: document.RecordMetadata{Title: "Quarks"}}
			doc, _ := withMeta.Split()
			Expect(doc.Title).To(Equal("Quarks"))

			without := document.Record{ArxivID: "b", FullText: &full}
			doc, _ = without.Split()
			Expect(doc.Title).To(Equal("Unknown"))
		})

		It("leaves pages nil when the text field is missing", func() {
			r := document.Record{ArxivID: "a"}
			_, rec := r.Split()
			Expect(rec.Pages).To(BeNil())
		})

		It("leaves pages nil when any page lacks text", func() {
			one := "ok"
			r := document.Record{ArxivID: "a", Pages: []document.RecordPage{
				{PageNumber: 1, Text: &one},
				{PageNumber: 2},
			}}
			_, rec := r.Split()
			Expect(rec.Pages).To(BeNil())
		})

		It("keeps empty text as an empty, non-nil page list", func() {
			empty := ""
			r := document.Record{ArxivID: "a", FullText: &empty}
			_, rec := r.Split()
			Expect(rec.Pages).NotTo(BeNil())
			Expect(rec.Text()).To(BeEmpty())
		})

		It("treats an empty pages array as an empty document", func() {
			records, err := document.Parse([]byte(`{"document_id": "p1", "title": "T", "pages": []}`))
			Expect(err).NotTo(HaveOccurred())

			doc, rec := records[0].Split()
			Expect(rec.Pages).NotTo(BeNil())
			Expect(rec.Pages).To(BeEmpty())
			Expect(doc.NumPages).To(BeZero())

			c, err := chunker.New()
			Expect(err).NotTo(HaveOccurred())
			chunks, err := c.Chunk(rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})
	})

	Describe("Validate", func() {
		It("requires an identifier", func() {
			r := document.Record{Filename: "x.pdf"}
			Expect(r.Validate()).To(MatchError(document.ErrExtraction))
		})

		It("rejects negative page counts", func() {
			r := document.Record{ArxivID: "a", NumPages: -1}
			Expect(r.Validate()).To(MatchError(document.ErrExtraction))
		})

		It("accepts a well formed record", func() {
			full := "t"
			r := document.Record{ArxivID: "a", NumPages: 1, FullText: &full}
			Expect(r.Validate()).To(Succeed())
		})
	})

	Describe("LoadRecords", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		write := func(name, body string) string {
			p := filepath.Join(dir, name)
			Expect(os.WriteFile(p, []byte(body), 0o600)).To(Succeed())
			return p
		}

		It("loads a single file", func() {
			p := write("all_papers.json", `[{"arxiv_id": "a", "full_text": "x"}, {"arxiv_id": "b", "full_text": "y"}]`)

			result, err := document.LoadRecords(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Records).To(HaveLen(2))
			Expect(result.Skipped).To(BeEmpty())
		})

		It("loads a directory and de-duplicates by document id", func() {
			write("a.json", `{"arxiv_id": "a", "full_text": "x"}`)
			write("all_papers.json", `[{"arxiv_id": "a", "full_text": "x"}, {"arxiv_id": "b", "full_text": "y"}]`)
			write("notes.txt", "not json")

			result, err := document.LoadRecords(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Records).To(HaveLen(2))
			Expect(result.Records[0].ID()).To(Equal("a"))
			Expect(result.Records[1].ID()).To(Equal("b"))
		})

		It("reports unreadable files as skipped", func() {
			write("a.json", `{"arxiv_id": "a", "full_text": "x"}`)
			write("broken.json", `{"arxiv_id": `)

			result, err := document.LoadRecords(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Records).To(HaveLen(1))
			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Skipped[0].Path).To(HaveSuffix("broken.json"))
		})

		It("fails when nothing could be loaded", func() {
			write("broken.json", `nope`)

			_, err := document.LoadRecords(dir)
			Expect(err).To(MatchError(document.ErrExtraction))
		})

		It("fails with an acquisition error for a missing path", func() {
			_, err := document.LoadRecords(filepath.Join(dir, "missing"))
			Expect(err).To(MatchError(document.ErrAcquisition))
		})
	})
})
