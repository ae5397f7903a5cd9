package main

import (
	"os"

	"github.com/mlsorensen/govcp/cmd/vcp-renderer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
