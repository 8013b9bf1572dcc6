// Package main provides the esqlgen CLI entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/esqlgen/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
