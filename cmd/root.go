// Package cmd implements the terramcp CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version number.
const Version = "0.1.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "terramcp",
	Short: "MCP server for Terra workflow monitoring",
	Long: `terramcp exposes Terra/Cromwell workflow operations as MCP tools:
workspace and data-table browsing, submission tracking, context-budgeted
workflow metadata, log retrieval and task failure diagnosis. The server
is read-only unless started with --read-write.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("terramcp %s\n", Version))
}

// GetRootCmd returns the root command (used in tests).
func GetRootCmd() *cobra.Command {
	return rootCmd
}
