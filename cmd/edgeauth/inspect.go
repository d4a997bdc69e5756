package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ejwt "github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/keyring"
	"github.com/MrEthical07/edgeAuth/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	cookieName string
	multiple   bool
	keys       []string
	cookies    []string
}

func inspectCmd() *cobra.Command {
	opts := inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect --key SECRET --cookie NAME=VALUE...",
		Short: "Decode and verify session cookies",
		Long: `Decode session cookies, report which signature key verifies them, and
print the unverified ID token claims. No provider is contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.cookieName, "name", "AuthToken", "configured cookie name")
	cmd.Flags().BoolVar(&opts.multiple, "multiple", false, "cookies use the multiple-cookie scheme")
	cmd.Flags().StringArrayVar(&opts.keys, "key", nil, "cookie signature key, current first (repeatable)")
	cmd.Flags().StringArrayVar(&opts.cookies, "cookie", nil, "cookie as NAME=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func runInspect(out io.Writer, opts inspectOptions) error {
	ring, err := keyring.FromStrings(opts.keys)
	if err != nil {
		return err
	}

	values := make(map[string]string, len(opts.cookies))
	for _, raw := range opts.cookies {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return fmt.Errorf("cookie %q is not NAME=VALUE", raw)
		}
		values[strings.TrimSpace(name)] = value
	}

	scheme := session.SchemeSingle
	if opts.multiple {
		scheme = session.SchemeMultiple
	}
	p, err := session.Decode(values, scheme, session.DecodeOptions{
		CookieName:          opts.cookieName,
		AllowMissingRefresh: true,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "scheme:        %s\n", scheme)
	fmt.Fprintf(out, "refresh token: %t\n", p.RefreshToken != "")
	fmt.Fprintf(out, "custom token:  %t\n", p.CustomToken != "")

	sig, err := base64.RawURLEncoding.Strict().DecodeString(p.Signature)
	if err != nil {
		return session.ErrInvalidSignature
	}
	idx := ring.Match(session.Canonical(*p), sig)
	if idx < 0 {
		fmt.Fprintln(out, "signature:     INVALID")
		return session.ErrInvalidSignature
	}
	fmt.Fprintf(out, "signature:     ok (key %d)\n", idx)

	claims := &ejwt.IDClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.IDToken, claims); err != nil {
		return errors.Join(ejwt.ErrMalformed, err)
	}
	fmt.Fprintf(out, "uid:           %s\n", claims.UID())
	if claims.Firebase.Tenant != "" {
		fmt.Fprintf(out, "tenant:        %s\n", claims.Firebase.Tenant)
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		state := "valid"
		if time.Now().After(exp) {
			state = "expired"
		}
		fmt.Fprintf(out, "expires:       %s (%s)\n", exp.UTC().Format(time.RFC3339), state)
	}
	names := make([]string, 0, len(claims.Custom))
	for k := range claims.Custom {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(out, "claim %s: %v\n", k, claims.Custom[k])
	}
	return nil
}
