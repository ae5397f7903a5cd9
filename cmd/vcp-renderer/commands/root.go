// Package commands implements the vcp-renderer command line.
package commands

import (
	"github.com/spf13/cobra"

	_ "github.com/mlsorensen/govcp/pkg/bindings/all"
)

var configPath string

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vcp-renderer",
		Short:        "Bluetooth Volume Control renderer",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults are used when empty)")

	root.AddCommand(serveCmd(), logCmd(), bindingsCmd())
	return root
}
