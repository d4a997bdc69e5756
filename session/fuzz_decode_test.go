package session

import (
	"errors"
	"testing"

	"github.com/MrEthical07/edgeAuth/keyring"
)

func ringForFuzz() (*keyring.Ring, error) {
	return keyring.New([]byte("fuzz-secret"))
}

// FuzzSessionDecode exercises the single-cookie decoder with arbitrary inputs.
// Goal: no panics, and every failure is classified as missing or malformed.
func FuzzSessionDecode(f *testing.F) {
	ring, err := ringForFuzz()
	if err != nil {
		f.Fatalf("ring: %v", err)
	}
	signed := Sign(Payload{IDToken: "h.c.s", RefreshToken: "rt", CustomToken: "ct"}, ring)
	cookies, err := Encode(signed, SchemeSingle, EncodeOptions{CookieName: "s", EnableCustomToken: true})
	if err == nil {
		f.Add(cookies[0].Value)
	}

	f.Add("")
	f.Add("e30")
	f.Add("bnVsbA")
	f.Add("eyJpZCI6MX0")
	f.Add("%%%")

	f.Fuzz(func(t *testing.T, value string) {
		p, err := Decode(map[string]string{"s": value}, SchemeSingle, DecodeOptions{CookieName: "s", AllowMissingRefresh: true})
		if err != nil {
			if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("unclassified decode error: %v", err)
			}
			return
		}
		if p.IDToken == "" || p.Signature == "" {
			t.Fatal("decoded payload without id token or signature")
		}
		_ = Verify(*p, ring)
	})
}

// FuzzMultipleDecode checks the multi-cookie decoder never panics on partial cookie sets.
func FuzzMultipleDecode(f *testing.F) {
	f.Add("id", "rt", "", "sig")
	f.Add("", "", "", "")
	f.Add("id", "", "", "")

	f.Fuzz(func(t *testing.T, id, refresh, custom, sig string) {
		values := map[string]string{"s.id": id, "s.refresh": refresh, "s.custom": custom, "s.sig": sig}
		p, err := Decode(values, SchemeMultiple, DecodeOptions{CookieName: "s"})
		if err != nil {
			return
		}
		if p.IDToken != id || p.RefreshToken != refresh || p.Signature != sig {
			t.Fatalf("decoded payload does not mirror cookies: %+v", p)
		}
	})
}
