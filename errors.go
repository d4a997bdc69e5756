package edgeAuth

import "errors"

var (
	// ErrInternal wraps recovered panics and unexpected failures on the request path.
	ErrInternal = errors.New("internal error")
	// ErrInvalidCredentials is returned when a token or refresh token is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRevoked is returned when the account was disabled, deleted or had its tokens revoked.
	ErrRevoked = errors.New("credentials revoked")
	// ErrMissingRefreshToken is returned when a refresh is required but the session has no refresh token.
	ErrMissingRefreshToken = errors.New("refresh token missing")
	// ErrMissingAuthorization is returned by Login when the authorization header is absent.
	ErrMissingAuthorization = errors.New("authorization header missing")
	// ErrInvalidAuthorization is returned by Login when the authorization header is not a bearer token.
	ErrInvalidAuthorization = errors.New("authorization header malformed")
	// ErrNoSession is returned by ForceRefresh when the request carries no usable session.
	ErrNoSession = errors.New("no session")
)
