package main

import (
	"fmt"

	edgeAuth "github.com/MrEthical07/edgeAuth"
	"github.com/spf13/cobra"
)

func lintCmd() *cobra.Command {
	var (
		envFiles []string
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate and lint EDGEAUTH_* configuration",
		Long: `Load configuration the way an edge process does, validate it, and report
risky settings.

With --strict, HIGH findings fail the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := edgeAuth.LoadConfigFromEnv(envFiles...)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := cfg.Lint()
			if len(result) == 0 {
				fmt.Fprintln(out, "ok: no findings")
				return nil
			}
			for _, w := range result {
				fmt.Fprintf(out, "%-5s %-28s %s\n", w.Severity, w.Code, w.Message)
			}
			if strict {
				return result.AsError(edgeAuth.LintHigh)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load before reading the environment")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on HIGH findings")
	return cmd
}
