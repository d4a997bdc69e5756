package edgeAuth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/edgeAuth/internal/audit"
	"github.com/MrEthical07/edgeAuth/internal/flows"
	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/keycache"
	"github.com/MrEthical07/edgeAuth/keyring"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

// Engine authenticates requests from their session cookies.
//
// Engine is safe for concurrent use after [Builder.Build].
type Engine struct {
	config    Config
	ring      *keyring.Ring
	markers   *keyring.Ring
	scheme    session.Scheme
	names     session.CookieNames
	client    *provider.Client
	keys      *provider.KeySet
	keyStore  *keycache.Store
	validator *jwt.Validator
	signer    *jwt.CustomTokenSigner
	logger    *zap.Logger
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	flows     flows.Deps
	now       func() time.Time
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped reports audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType returns audit drop counts keyed by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate verifies the request's session cookies and, when the ID token
// has expired, refreshes it. The returned Outcome is never nil.
//
// A verified outcome already stored in ctx by [WithOutcome] is returned as
// is. The [VerifiedHeader] marker is never trusted here; it is meant for
// hops behind the edge, see [Engine.VerifyForwarded].
func (e *Engine) Authenticate(ctx context.Context, r *http.Request) Result {
	start := time.Now()
	if e.metrics.LatencyEnabled() {
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	if o, ok := OutcomeFromContext(ctx); ok {
		e.metricInc(MetricForwardedSkip)
		return Result{Outcome: o}
	}

	res, err := e.runAuthenticate(ctx, e.cookieValues(r))
	if err != nil {
		e.logger.Error("authenticate panicked", zap.Error(err))
		e.metricInc(MetricAuthError)
		return Result{Outcome: ErrorOutcome{Err: err}}
	}
	return e.resolve(ctx, r, res)
}

func (e *Engine) runAuthenticate(ctx context.Context, values map[string]string) (res flows.AuthenticateResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, p)
		}
	}()
	return flows.RunAuthenticate(ctx, values, e.flows.Authenticate), nil
}

// resolve maps a flow result to the public outcome and records metrics,
// audit events and debug logs.
func (e *Engine) resolve(ctx context.Context, r *http.Request, res flows.AuthenticateResult) Result {
	if res.Failure == flows.AuthFailureNone {
		o := ValidOutcome{
			Token:       res.Payload.IDToken,
			Principal:   principalFromClaims(res.Claims),
			CustomToken: res.Payload.CustomToken,
			Refreshed:   res.Refreshed,
		}
		out := Result{Outcome: o, Forward: http.Header{}}
		if res.Refreshed {
			e.metricInc(MetricRefreshSuccess)
			e.emitAudit(ctx, internalaudit.EventRefreshSuccess, true, o.Principal.UID, o.Principal.TenantID, "", nil)
			out.SetCookies = e.httpCookies(res.Refresh.Cookies)
			out.Forward.Set("Cookie", e.forwardCookieHeader(r, res.Refresh.Cookies))
		}
		out.Forward.Set(VerifiedHeader, e.marker(o.Token))
		e.metricInc(MetricAuthValid)
		e.debug("request authenticated", zap.String("uid", o.Principal.UID), zap.Bool("refreshed", o.Refreshed))
		return out
	}

	outcome := e.failureOutcome(ctx, res)
	switch o := outcome.(type) {
	case InvalidOutcome:
		e.metricInc(MetricAuthInvalid)
		e.debug("request rejected", zap.Stringer("reason", o.Reason), zap.Error(o.Err))
	case ErrorOutcome:
		e.metricInc(MetricAuthError)
		e.logger.Warn("authentication failed", zap.Error(o.Err))
	}
	return Result{Outcome: outcome}
}

func (e *Engine) failureOutcome(ctx context.Context, res flows.AuthenticateResult) Outcome {
	uid, tenant := "", ""
	if res.Claims != nil {
		uid, tenant = res.Claims.UID(), res.Claims.Firebase.Tenant
	}

	switch res.Failure {
	case flows.AuthFailureMissing:
		return InvalidOutcome{Reason: ReasonMissingCredentials, Err: res.Err}
	case flows.AuthFailureMissingRefresh:
		return InvalidOutcome{Reason: ReasonMissingRefreshToken, Err: ErrMissingRefreshToken}
	case flows.AuthFailureMalformed:
		return InvalidOutcome{Reason: ReasonMalformedCredentials, Err: res.Err}
	case flows.AuthFailureSignature:
		e.metricInc(MetricSignatureInvalid)
		e.emitAudit(ctx, internalaudit.EventSignatureInvalid, false, "", "", ReasonInvalidSignature.String(), res.Err)
		return InvalidOutcome{Reason: ReasonInvalidSignature, Err: res.Err}
	case flows.AuthFailureInvalid:
		return InvalidOutcome{Reason: ReasonInvalidCredentials, Err: fmt.Errorf("%w: %w", ErrInvalidCredentials, res.Err)}
	case flows.AuthFailureRevoked:
		e.metricInc(MetricRevoked)
		e.emitAudit(ctx, internalaudit.EventTokenRevoked, false, uid, tenant, ReasonInvalidCredentials.String(), res.Err)
		return InvalidOutcome{Reason: ReasonInvalidCredentials, Err: revokedError(res.Err)}
	case flows.AuthFailureRefresh:
		return e.refreshFailureOutcome(ctx, res.Refresh, uid, tenant)
	default:
		err := res.Err
		if err == nil {
			err = ErrInternal
		}
		return ErrorOutcome{Err: err}
	}
}

func (e *Engine) refreshFailureOutcome(ctx context.Context, rr *flows.RefreshResult, uid, tenant string) Outcome {
	e.metricInc(MetricRefreshFailure)
	if rr == nil {
		return ErrorOutcome{Err: ErrInternal}
	}

	outcome := classifyRefreshFailure(rr)
	if o, ok := outcome.(InvalidOutcome); ok {
		e.emitAudit(ctx, internalaudit.EventRefreshInvalid, false, uid, tenant, o.Reason.String(), rr.Err)
	}
	return outcome
}

func revokedError(cause error) error {
	if cause == nil {
		return ErrRevoked
	}
	return fmt.Errorf("%w: %w", ErrRevoked, cause)
}

// Handle authenticates r, writes pending Set-Cookie headers, and calls
// exactly one of h's handlers. The request passed to Valid carries the
// verified outcome in its context and the forwardable headers. Nothing is
// written when the request context ends during authentication.
func (e *Engine) Handle(w http.ResponseWriter, r *http.Request, h Handlers) {
	r = withoutMarker(r)
	res := e.Authenticate(r.Context(), r)
	if r.Context().Err() != nil {
		return
	}

	for _, c := range res.SetCookies {
		http.SetCookie(w, c)
	}

	switch o := res.Outcome.(type) {
	case ValidOutcome:
		if h.Valid != nil {
			h.Valid(w, e.forwardRequest(r, res, o), o)
		}
	case InvalidOutcome:
		if h.Invalid != nil {
			h.Invalid(w, r, o)
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case ErrorOutcome:
		if h.Error != nil {
			h.Error(w, r, o)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// forwardRequest returns a copy of r for downstream handlers: session cookies
// replaced by refreshed ones, the marker header set, and o stored in the context.
func (e *Engine) forwardRequest(r *http.Request, res Result, o ValidOutcome) *http.Request {
	fr := r.Clone(WithOutcome(r.Context(), o))
	for k, v := range res.Forward {
		fr.Header[k] = v
	}
	return fr
}

// withoutMarker drops a client-supplied marker header so it never reaches
// downstream handlers alongside an unverified request.
func withoutMarker(r *http.Request) *http.Request {
	if r.Header.Get(VerifiedHeader) == "" {
		return r
	}
	stripped := r.Clone(r.Context())
	stripped.Header.Del(VerifiedHeader)
	return stripped
}

// VerifyForwarded is for services behind the edge. It reports whether r carries a marker header matching its
// session's ID token, and returns the outcome decoded from that token.
func (e *Engine) VerifyForwarded(r *http.Request) (ValidOutcome, bool) {
	return e.verifyMarker(r, e.cookieValues(r))
}

func (e *Engine) verifyMarker(r *http.Request, values map[string]string) (ValidOutcome, bool) {
	mark := r.Header.Get(VerifiedHeader)
	if mark == "" {
		return ValidOutcome{}, false
	}
	sig, err := base64.RawURLEncoding.Strict().DecodeString(mark)
	if err != nil {
		return ValidOutcome{}, false
	}
	p, err := e.decode(values)
	if err != nil || !e.markers.Verify([]byte(p.IDToken), sig) {
		return ValidOutcome{}, false
	}
	claims, err := e.validator.ParseUnverified(p.IDToken)
	if err != nil || claims.ExpiresAt == nil || !e.now().Before(claims.ExpiresAt.Time) {
		return ValidOutcome{}, false
	}
	return ValidOutcome{
		Token:       p.IDToken,
		Principal:   principalFromClaims(claims),
		CustomToken: p.CustomToken,
	}, true
}

func (e *Engine) marker(idToken string) string {
	return base64.RawURLEncoding.EncodeToString(e.markers.Sign([]byte(idToken)))
}

func (e *Engine) cookieValues(r *http.Request) map[string]string {
	values := make(map[string]string, 4)
	if r == nil {
		return values
	}
	for _, name := range e.names.All() {
		if c, err := r.Cookie(name); err == nil {
			values[name] = c.Value
		}
	}
	return values
}

func (e *Engine) decode(values map[string]string) (*session.Payload, error) {
	return session.Decode(values, e.scheme, session.DecodeOptions{
		CookieName:          e.config.CookieName,
		AllowMissingRefresh: e.config.AllowMissingRefreshToken,
	})
}

func (e *Engine) encode(p session.Payload) ([]session.Cookie, error) {
	return session.Encode(p, e.scheme, session.EncodeOptions{
		CookieName:        e.config.CookieName,
		EnableCustomToken: e.config.EnableCustomToken,
	})
}

func (e *Engine) httpCookies(cs []session.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cs))
	opts := e.config.CookieSerializeOptions
	for _, c := range cs {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   opts.MaxAge,
			HttpOnly: opts.HTTPOnly,
			Secure:   opts.Secure,
			SameSite: opts.SameSite,
		})
	}
	return out
}

// forwardCookieHeader rebuilds the request Cookie header with the session
// cookies replaced by fresh ones.
func (e *Engine) forwardCookieHeader(r *http.Request, fresh []session.Cookie) string {
	owned := make(map[string]struct{}, 5)
	for _, name := range e.names.All() {
		owned[name] = struct{}{}
	}

	parts := make([]string, 0, len(fresh)+4)
	for _, c := range r.Cookies() {
		if _, ok := owned[c.Name]; ok {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	for _, c := range fresh {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func (e *Engine) debug(msg string, fields ...zap.Field) {
	if e.config.Debug {
		e.logger.Debug(msg, fields...)
	}
}

func (e *Engine) buildFlowDeps() flows.Deps {
	deps := flows.Deps{
		Refresh: e.refreshDeps(),
	}

	var debug func(string, ...any)
	if e.config.Debug {
		debug = e.logger.Sugar().Debugw
	}
	deps.Authenticate = flows.AuthenticateDeps{
		Decode: e.decode,
		VerifySignature: func(p session.Payload) error {
			return session.Verify(p, e.ring)
		},
		ParseIDToken: e.validator.Parse,
		CheckRevoked: e.config.CheckRevoked,
		LookupUser: func(ctx context.Context, uid string) (*provider.UserRecord, error) {
			e.metricInc(MetricRevocationCheck)
			return e.client.LookupUser(ctx, uid)
		},
		Refresh: func(ctx context.Context, refreshToken, uid string) flows.RefreshResult {
			return flows.RunRefresh(ctx, refreshToken, uid, e.flows.Refresh)
		},
		RefreshThreshold: e.config.RefreshThreshold,
		Now:              e.now,
		Debug:            debug,
		Warn:             e.logger.Sugar().Warnw,
	}
	return deps
}
