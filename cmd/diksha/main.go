package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "diksha",
	Short:   "WhatsApp assistant for The BAAP Company",
	Version: version,
	Long: `diksha runs the WhatsApp conversational assistant: it serves the Meta
webhook, answers customer messages from the company knowledge base, and
records customers and conversation outcomes in a local ledger.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(customersCmd)
}
