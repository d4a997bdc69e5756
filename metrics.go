package edgeAuth

import (
	internalmetrics "github.com/MrEthical07/edgeAuth/internal/metrics"
)

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricAuthValid counts requests that ended in a ValidOutcome.
	MetricAuthValid = internalmetrics.MetricAuthValid
	// MetricAuthInvalid counts requests that ended in an InvalidOutcome.
	MetricAuthInvalid = internalmetrics.MetricAuthInvalid
	// MetricAuthError counts requests that ended in an ErrorOutcome.
	MetricAuthError = internalmetrics.MetricAuthError
	// MetricSignatureInvalid counts cookie signatures that matched no key.
	MetricSignatureInvalid = internalmetrics.MetricSignatureInvalid
	MetricRefreshSuccess   = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure   = internalmetrics.MetricRefreshFailure
	// MetricRevocationCheck counts account lookups made for revocation.
	MetricRevocationCheck = internalmetrics.MetricRevocationCheck
	MetricRevoked         = internalmetrics.MetricRevoked
	MetricLoginSuccess    = internalmetrics.MetricLoginSuccess
	MetricLoginFailure    = internalmetrics.MetricLoginFailure
	MetricLogout          = internalmetrics.MetricLogout
	// MetricForwardedSkip counts requests whose verification was skipped
	// because an earlier hop already verified them.
	MetricForwardedSkip = internalmetrics.MetricForwardedSkip
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency = internalmetrics.MetricAuthenticateLatency
)

// Metrics holds lock-free counters and latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics instance from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
