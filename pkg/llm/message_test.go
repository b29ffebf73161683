package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/llm"
)

var _ = Describe("Message", func() {
	It("concatenates text blocks", func() {
		m := llm.Message{Role: llm.RoleUser, Content: []llm.ContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "text", Text: "world"},
		}}
		Expect(m.GetText()).To(Equal("hello world"))
	})

	It("splits system messages from the conversation", func() {
		system, rest := llm.SplitSystem([]llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "be terse"),
			llm.NewTextMessage(llm.RoleUser, "hi"),
			llm.NewTextMessage(llm.RoleSystem, "cite sources"),
		})
		Expect(system).To(Equal("be terse\n\ncite sources"))
		Expect(rest).To(HaveLen(1))
		Expect(rest[0].Role).To(Equal(llm.RoleUser))
	})
})
