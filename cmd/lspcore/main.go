// Package main provides the entry point for the lspcore CLI.
package main

import (
	"fmt"
	"os"

	"github.com/WaylonWalker/lspcore/cmd/lspcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
