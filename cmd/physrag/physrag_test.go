package physragcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	physragcmder "github.com/papercomputeco/physrag/cmd/physrag"
)

var _ = Describe("NewPhysragCmd", func() {
	It("registers every subcommand", func() {
		cmd := physragcmder.NewPhysragCmd()

		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("init", "config", "ingest", "ask", "search", "serve", "version"))
	})

	It("has the global flags", func() {
		cmd := physragcmder.NewPhysragCmd()
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("has no conflicting shorthands across subcommands", func() {
		cmd := physragcmder.NewPhysragCmd()
		for _, sub := range cmd.Commands() {
			Expect(func() {
				sub.InheritedFlags()
				sub.LocalFlags()
			}).NotTo(Panic(), sub.Name())
		}
	})
})
