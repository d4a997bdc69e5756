package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/edgeAuth/keyring"
	"github.com/MrEthical07/edgeAuth/session"
	"github.com/spf13/cobra"
)

type signOptions struct {
	cookieName string
	multiple   bool
	keys       []string
	payload    session.Payload
}

func signCmd() *cobra.Command {
	opts := signOptions{}

	cmd := &cobra.Command{
		Use:   "sign --key SECRET --id-token TOKEN",
		Short: "Encode tokens into signed session cookies",
		Long: `Sign a token set with the first key and print the resulting cookies as
NAME=VALUE lines, ready for "inspect" or a test client's cookie jar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSign(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.cookieName, "name", "AuthToken", "configured cookie name")
	cmd.Flags().BoolVar(&opts.multiple, "multiple", false, "use the multiple-cookie scheme")
	cmd.Flags().StringArrayVar(&opts.keys, "key", nil, "cookie signature key, current first (repeatable)")
	cmd.Flags().StringVar(&opts.payload.IDToken, "id-token", "", "provider ID token")
	cmd.Flags().StringVar(&opts.payload.RefreshToken, "refresh-token", "", "provider refresh token")
	cmd.Flags().StringVar(&opts.payload.CustomToken, "custom-token", "", "provider custom token")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("id-token")
	return cmd
}

func runSign(out io.Writer, opts signOptions) error {
	if opts.payload.IDToken == "" {
		return errors.New("id token is required")
	}
	ring, err := keyring.FromStrings(opts.keys)
	if err != nil {
		return err
	}

	scheme := session.SchemeSingle
	if opts.multiple {
		scheme = session.SchemeMultiple
	}
	cookies, err := session.Encode(session.Sign(opts.payload, ring), scheme, session.EncodeOptions{
		CookieName:        opts.cookieName,
		EnableCustomToken: opts.payload.CustomToken != "",
	})
	if err != nil {
		return err
	}
	for _, c := range cookies {
		fmt.Fprintf(out, "%s=%s\n", c.Name, c.Value)
	}
	return nil
}
