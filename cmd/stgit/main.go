// Command stgit wires the stack transaction engine into a running
// repository. It is a composition root only: argument parsing, subcommand
// dispatch, and interactive prompts belong to a surrounding CLI layer that
// is out of scope here.
package main

import (
	"fmt"
	"os"

	"github.com/aelgogary/stgit/internal/runtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stgit:", err)
		os.Exit(1)
	}
}

func run() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	rt, err := runtime.Open(wd)
	if err != nil {
		return err
	}
	_ = rt
	return nil
}
