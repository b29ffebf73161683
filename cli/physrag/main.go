package main

import (
	"os"

	physragcmder "github.com/papercomputeco/physrag/cmd/physrag"
)

func main() {
	cmd := physragcmder.NewPhysragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
