package middleware

import (
	"context"
	"net"
	"net/http"

	edgeAuth "github.com/MrEthical07/edgeAuth"
)

// Option customizes [Guard] and [Edge].
type Option func(*options)

type options struct {
	invalid func(http.ResponseWriter, *http.Request, edgeAuth.InvalidOutcome)
	error   func(http.ResponseWriter, *http.Request, edgeAuth.ErrorOutcome)
}

// WithInvalidHandler replaces the default 401 response.
func WithInvalidHandler(h func(http.ResponseWriter, *http.Request, edgeAuth.InvalidOutcome)) Option {
	return func(o *options) { o.invalid = h }
}

// WithErrorHandler replaces the default 500 response.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, edgeAuth.ErrorOutcome)) Option {
	return func(o *options) { o.error = h }
}

// PrincipalFromContext returns the user verified by [Guard].
func PrincipalFromContext(ctx context.Context) (edgeAuth.Principal, bool) {
	o, ok := edgeAuth.OutcomeFromContext(ctx)
	if !ok {
		return edgeAuth.Principal{}, false
	}
	return o.Principal, true
}

// Guard authenticates each request from its session cookies. Valid requests
// reach next with refreshed cookies, the marker header and the outcome in
// the context.
func Guard(engine *edgeAuth.Engine, opts ...Option) func(http.Handler) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			engine.Handle(w, withClientIP(r), edgeAuth.Handlers{
				Valid: func(w http.ResponseWriter, r *http.Request, _ edgeAuth.ValidOutcome) {
					next.ServeHTTP(w, r)
				},
				Invalid: o.invalid,
				Error:   o.error,
			})
		})
	}
}

func withClientIP(r *http.Request) *http.Request {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return r
	}
	return r.WithContext(edgeAuth.WithClientIP(r.Context(), host))
}
