// Package main is the askql entrypoint.
package main

import (
	"os"

	"github.com/askql-labs/askql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
