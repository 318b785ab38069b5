package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the modscope application
var rootCmd = &cobra.Command{
	Use:   "modscope",
	Short: "Semantic module introspection and indexing for AI assistants",
	Long: `modscope introspects Go modules and live object trees, builds a semantic
vector index over their components, and serves search and workflow tools
over the Model Context Protocol (MCP).

It can run as:
  - An MCP server for AI assistants (serve)
  - A one-shot CLI indexer (index)`,
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
	rootCmd.SetVersionTemplate(`{{printf "modscope version %s\n" .Version}}`)

	// Optional .env file for local development (API keys etc.)
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modscope version %s\n", version)
		},
	}
}
