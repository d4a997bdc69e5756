package otel

import (
	"context"
	"errors"
	"fmt"

	edgeAuth "github.com/MrEthical07/edgeAuth"
	"github.com/MrEthical07/edgeAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() edgeAuth.MetricsSnapshot
	AuditDropped() uint64
}

// droppedByTypeSource is implemented by *edgeAuth.Engine; other sources
// report only the audit drop total.
type droppedByTypeSource interface {
	AuditDroppedByType() map[string]uint64
}

// series binds one snapshot counter to an instrument and its attributes.
type series struct {
	id    edgeAuth.MetricID
	attrs metric.ObserveOption
}

type instrument struct {
	name   string
	help   string
	series []series
}

func attr(key, value string) metric.ObserveOption {
	return metric.WithAttributes(attribute.String(key, value))
}

// instruments groups the engine counters by what they measure; outcome and
// result variants are attributes of one instrument.
var instruments = []instrument{
	{
		name: "edgeauth.authenticate.requests",
		help: "Authenticate calls by outcome.",
		series: []series{
			{id: edgeAuth.MetricAuthValid, attrs: attr("outcome", "valid")},
			{id: edgeAuth.MetricAuthInvalid, attrs: attr("outcome", "invalid")},
			{id: edgeAuth.MetricAuthError, attrs: attr("outcome", "error")},
		},
	},
	{
		name:   "edgeauth.authenticate.memoized",
		help:   "Authenticate calls answered from a verified outcome already in the context.",
		series: []series{{id: edgeAuth.MetricForwardedSkip}},
	},
	{
		name:   "edgeauth.signature.invalid",
		help:   "Session cookies whose signature matched no key.",
		series: []series{{id: edgeAuth.MetricSignatureInvalid}},
	},
	{
		name: "edgeauth.refresh",
		help: "ID token refreshes by result.",
		series: []series{
			{id: edgeAuth.MetricRefreshSuccess, attrs: attr("result", "success")},
			{id: edgeAuth.MetricRefreshFailure, attrs: attr("result", "failure")},
		},
	},
	{
		name: "edgeauth.revocation",
		help: "Account revocation lookups by result.",
		series: []series{
			{id: edgeAuth.MetricRevocationCheck, attrs: attr("result", "checked")},
			{id: edgeAuth.MetricRevoked, attrs: attr("result", "revoked")},
		},
	},
	{
		name: "edgeauth.login",
		help: "Logins by result.",
		series: []series{
			{id: edgeAuth.MetricLoginSuccess, attrs: attr("result", "success")},
			{id: edgeAuth.MetricLoginFailure, attrs: attr("result", "failure")},
		},
	},
	{
		name:   "edgeauth.logout",
		help:   "Logouts.",
		series: []series{{id: edgeAuth.MetricLogout}},
	},
}

type observedCounter struct {
	instrument metric.Int64ObservableCounter
	series     []series
}

// OTelExporter registers observable instruments that read an engine's
// metrics snapshot once per collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
	bucketAttrs  []metric.ObserveOption
}

// NewOTelExporter registers edgeAuth instruments on meter, reading from engine.
func NewOTelExporter(meter metric.Meter, engine *edgeAuth.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:      source,
		counters:    make([]observedCounter, 0, len(instruments)),
		bucketAttrs: make([]metric.ObserveOption, len(internaldefs.HistogramBoundSuffix)),
	}
	observables := make([]metric.Observable, 0, len(instruments)+3)

	for _, def := range instruments {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		e.counters = append(e.counters, observedCounter{instrument: ins, series: def.series})
		observables = append(observables, ins)
	}

	var err error
	e.latency, err = meter.Int64ObservableGauge(
		"edgeauth.authenticate.latency.bucket",
		metric.WithDescription("Cumulative Authenticate latency bucket counts; le is the upper bound in seconds."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	e.latencyCount, err = meter.Int64ObservableGauge(
		"edgeauth.authenticate.latency.count",
		metric.WithDescription("Authenticate latency sample count."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	for i := range e.bucketAttrs {
		le := "+Inf"
		if i < len(internaldefs.UpperBounds) {
			le = fmt.Sprint(internaldefs.UpperBounds[i])
		}
		e.bucketAttrs[i] = attr("le", le)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(
		"edgeauth.audit.dropped",
		metric.WithDescription("Audit events never queued, by event type when the source reports it."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for _, c := range e.counters {
			for _, s := range c.series {
				if s.attrs == nil {
					o.ObserveInt64(c.instrument, int64(snapshot.Counters[s.id]))
					continue
				}
				o.ObserveInt64(c.instrument, int64(snapshot.Counters[s.id]), s.attrs)
			}
		}
	}

	if raw, ok := snapshot.Histograms[edgeAuth.MetricAuthenticateLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(e.latency, int64(n), e.bucketAttrs[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	if typed, ok := e.source.(droppedByTypeSource); ok {
		for eventType, n := range typed.AuditDroppedByType() {
			o.ObserveInt64(e.auditDropped, int64(n), attr("event_type", eventType))
		}
		return nil
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
