// Package main provides the entry point for the twilogd CLI.
package main

import (
	"os"

	"github.com/twilog/twilogd/cmd/twilogd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
