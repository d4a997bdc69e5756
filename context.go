package edgeAuth

import "context"

type clientIPContextKey struct{}
type outcomeContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is recorded on
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithOutcome marks ctx as carrying a verified session. Authenticate returns
// the stored outcome instead of verifying the cookies again.
func WithOutcome(ctx context.Context, o ValidOutcome) context.Context {
	return context.WithValue(ctx, outcomeContextKey{}, o)
}

// OutcomeFromContext returns the verified outcome stored by [WithOutcome].
func OutcomeFromContext(ctx context.Context) (ValidOutcome, bool) {
	if ctx == nil {
		return ValidOutcome{}, false
	}
	o, ok := ctx.Value(outcomeContextKey{}).(ValidOutcome)
	return o, ok
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
