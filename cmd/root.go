package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mahakaal application
var rootCmd = &cobra.Command{
	Use:   "mahakaal",
	Short: "Conversational scheduling assistant for Google Calendar",
	Long: `mahakaal is a scheduling assistant that manages a Google Calendar through
natural language. A language model decides which calendar tools to call;
the assistant runs them and streams its progress.

It can run as:
  - An HTTP backend for the web frontend (serve, the default)
  - An interactive terminal chat (chat)
  - An MCP server exposing the calendar tools (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mahakaal version %s\n" .Version}}`)

	// If no subcommand is provided, run the HTTP backend by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: mahakaal.toml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file (default: .env when present)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
