// Package main provides the entry point for the devdocs CLI.
package main

import (
	"github.com/colthorp/devdocs-cli-go/internal/cli"
)

func main() {
	cli.Execute()
}
