package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the agendarouter application
var rootCmd = &cobra.Command{
	Use:   "agendarouter",
	Short: "Routes productivity requests to a task or calendar provider",
	Long: `agendarouter decides whether a natural-language request belongs to the
task provider (reclaim) or the calendar provider (nylas).

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (serve)
  - A one-shot classifier on the command line (classify)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Global flags shared by all subcommands.
var (
	debugMode  bool
	configPath string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agendarouter version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: ./agendarouter.yaml or the user config directory)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
