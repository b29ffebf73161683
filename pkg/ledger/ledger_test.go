package ledger_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/ledger"
)

var _ = Describe("FailedDocuments", func() {
	It("returns distinct document ids in first-seen order", func() {
		ids := ledger.FailedDocuments([]ledger.FailedChunk{
			{DocumentID: "b"},
			{DocumentID: "a"},
			{DocumentID: "b"},
			{DocumentID: ""},
		})
		Expect(ids).To(Equal([]string{"b", "a"}))
	})

	It("returns nil for no failures", func() {
		Expect(ledger.FailedDocuments(nil)).To(BeNil())
	})
})
