package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "edgeauth",
		Short: "Operator tooling for edgeAuth session cookies",
		Long: `edgeauth manages the secrets and configuration of an edgeAuth deployment.

  keygen    generate cookie signature keys
  sign      encode tokens into signed session cookies
  lint      validate and lint EDGEAUTH_* configuration
  inspect   decode and verify session cookies
  loadtest  measure cookie signing and key cache throughput`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		keygenCmd(),
		signCmd(),
		lintCmd(),
		inspectCmd(),
		loadtestCmd(),
	)
	return root
}
