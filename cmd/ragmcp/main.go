// Package main provides the entry point for the ragmcp CLI.
package main

import (
	"os"

	"github.com/mr-nozko/rag-mcp/cmd/ragmcp/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
