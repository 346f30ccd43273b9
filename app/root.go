// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ippel-rnc",
	Short: "ippel-rnc is the web service behind Sistema IPPEL RNC",
	Long: `ippel-rnc is the web service behind Sistema IPPEL RNC, the
non-conformance report tracker. It serves the report workflow, group
permissions, field locks and persistent notifications over HTTP.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
