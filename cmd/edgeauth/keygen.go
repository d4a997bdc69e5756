package main

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/edgeAuth/internal"
	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var (
		count int
		size  int
		env   bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate cookie signature keys",
		Long: `Generate random cookie signature keys.

The first key signs new cookies; append the previous keys after it when
rotating so existing sessions keep verifying.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := internal.NewSecrets(count, size)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if env {
				fmt.Fprintf(out, "EDGEAUTH_COOKIE_SIGNATURE_KEYS=%s\n", strings.Join(keys, ","))
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of keys")
	cmd.Flags().IntVar(&size, "size", internal.MinSecretSize, "random bytes per key")
	cmd.Flags().BoolVar(&env, "env", false, "print as an EDGEAUTH_COOKIE_SIGNATURE_KEYS line")
	return cmd
}
