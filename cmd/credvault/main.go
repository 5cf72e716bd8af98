package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "credvault",
	Short: "credvault is an encrypted multi-provider credential vault",
	Long: `credvault stores API credentials for external providers (GitHub, GitLab,
OpenAI, Anthropic, Mistral, AWS) encrypted at rest with AES-256-GCM, and
serves them to tool callers over MCP. Credentials are validated against
per-provider format rules before storage and never appear in logs or
audit records.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
