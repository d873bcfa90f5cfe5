// Package main provides the entry point for the codeindex CLI.
package main

import (
	"os"

	"github.com/forge9/codeindex/cmd/codeindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		code := cmd.ExitCode()
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}
}
