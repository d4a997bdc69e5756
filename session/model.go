package session

// Payload is the signed content of a session cookie.
//
// Signature covers IDToken, RefreshToken and CustomToken; see [Canonical].
type Payload struct {
	IDToken      string `json:"id"`
	RefreshToken string `json:"refresh,omitempty"`
	CustomToken  string `json:"custom,omitempty"`
	Signature    string `json:"sig"`
}

// Scheme selects how a Payload is partitioned into cookies.
type Scheme int

const (
	// SchemeSingle stores the whole payload in one cookie named after the configured cookie name.
	SchemeSingle Scheme = iota
	// SchemeMultiple stores each field in its own cookie: name.id, name.refresh, name.custom, name.sig.
	SchemeMultiple
)

func (s Scheme) String() string {
	switch s {
	case SchemeSingle:
		return "single"
	case SchemeMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// Cookie is a name/value pair produced by the codec. Attributes are assembled by the caller.
type Cookie struct {
	Name  string
	Value string
}

// CookieNames lists every cookie name derived from a configured cookie name.
type CookieNames struct {
	Single  string
	ID      string
	Refresh string
	Custom  string
	Sig     string
}

// Names derives the cookie names for cookieName.
func Names(cookieName string) CookieNames {
	return CookieNames{
		Single:  cookieName,
		ID:      cookieName + ".id",
		Refresh: cookieName + ".refresh",
		Custom:  cookieName + ".custom",
		Sig:     cookieName + ".sig",
	}
}

// All returns every name in a stable order.
func (n CookieNames) All() []string {
	return []string{n.Single, n.ID, n.Refresh, n.Custom, n.Sig}
}
