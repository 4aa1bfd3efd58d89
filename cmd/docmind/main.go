// Command docmind is the entry point for the docmind multi-document agent.
// It provides a CLI interface (via Cobra) and an optional HTTP server that
// answers questions over a local document corpus.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docmind-go/cmd/docmind/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
