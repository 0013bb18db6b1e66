// Package metrics records engine activity as Prometheus collectors.
//
//	m := metrics.New("orders")
//	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
//	    return err
//	}
//	engine := sqsdispatch.New(factory, m.Options()...)
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/sqsdispatch"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Scope label values.
const (
	ScopeTenant     = "tenant"
	ScopeUntenanted = "untenanted"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Invocations        *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
	Modes              *prometheus.CounterVec
	Dispatches         *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	Records            *prometheus.CounterVec
	MarkedFailed       prometheus.Counter
}

// New creates the collectors under namespace. Nothing is registered yet.
func New(namespace string) *Metrics {
	return &Metrics{
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "invocations_total",
				Help:      "Total number of invocations by outcome",
			},
			[]string{"outcome"},
		),
		InvocationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "invocation_duration_seconds",
				Help:      "Duration of invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Modes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "mode_decisions_total",
				Help:      "Total number of invocations by dispatch mode",
			},
			[]string{"mode"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "dispatches_total",
				Help:      "Total number of consumer calls and failed branches",
			},
			[]string{"mode", "scope", "outcome"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of dispatch branches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode", "outcome"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "records_total",
				Help:      "Total number of records handed to consumers by mode",
			},
			[]string{"mode"},
		),
		MarkedFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sqsdispatch",
				Name:      "marked_failed_total",
				Help:      "Total number of messages reported as failed items",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Invocations,
		m.InvocationDuration,
		m.Modes,
		m.Dispatches,
		m.DispatchDuration,
		m.Records,
		m.MarkedFailed,
	}
}

// Options returns the engine hooks feeding the collectors.
func (m *Metrics) Options() []sqsdispatch.Option {
	return []sqsdispatch.Option{
		sqsdispatch.WithOnMode(m.onMode),
		sqsdispatch.WithOnSuccess(m.onSuccess),
		sqsdispatch.WithOnFailure(m.onFailure),
		sqsdispatch.WithOnComplete(m.onComplete),
	}
}

func (m *Metrics) onMode(_ context.Context, mode sqsdispatch.Mode, _ int) {
	m.Modes.WithLabelValues(mode.String()).Inc()
}

func (m *Metrics) onSuccess(_ context.Context, mode sqsdispatch.Mode, tenant string, records int, d time.Duration) {
	m.Dispatches.WithLabelValues(mode.String(), scope(tenant), OutcomeSuccess).Inc()
	m.DispatchDuration.WithLabelValues(mode.String(), OutcomeSuccess).Observe(d.Seconds())
	m.Records.WithLabelValues(mode.String()).Add(float64(records))
}

func (m *Metrics) onFailure(_ context.Context, mode sqsdispatch.Mode, tenant string, _ int, _ error, d time.Duration) {
	m.Dispatches.WithLabelValues(mode.String(), scope(tenant), OutcomeFailure).Inc()
	m.DispatchDuration.WithLabelValues(mode.String(), OutcomeFailure).Observe(d.Seconds())
}

func (m *Metrics) onComplete(_ context.Context, report *sqsdispatch.FailureReport, err error, d time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.Invocations.WithLabelValues(outcome).Inc()
	m.InvocationDuration.Observe(d.Seconds())
	if report != nil {
		m.MarkedFailed.Add(float64(len(report.FailedIDs)))
	}
}

func scope(tenant string) string {
	if tenant == "" {
		return ScopeUntenanted
	}
	return ScopeTenant
}
