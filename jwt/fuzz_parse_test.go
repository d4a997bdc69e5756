package jwt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/edgeAuth/internal/testkit"
	"github.com/MrEthical07/edgeAuth/jwt"
)

// FuzzParse checks that arbitrary token strings never panic and always map to
// one of the classified errors when rejected.
func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.e30.")
	f.Add("eyJhbGciOiJSUzI1NiIsImtpZCI6InRlc3Qta2V5LTEifQ.e30.AAAA")

	f.Fuzz(func(t *testing.T, raw string) {
		v, err := jwt.NewValidator(jwt.Config{ProjectID: testkit.ProjectID, Keys: testkit.Keys(t)})
		if err != nil {
			t.Fatalf("NewValidator failed: %v", err)
		}
		claims, err := v.Parse(context.Background(), raw)
		if err == nil {
			t.Fatalf("fuzzed token unexpectedly accepted: %+v", claims)
		}
		if !errors.Is(err, jwt.ErrMalformed) && !errors.Is(err, jwt.ErrInvalid) && !errors.Is(err, jwt.ErrExpired) {
			t.Fatalf("unclassified error: %v", err)
		}
	})
}
