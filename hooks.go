package sqsdispatch

import (
	"context"
	"time"
)

// Hooks run inside dispatch goroutines and may be called concurrently.

// OnModeFunc is called once per invocation after the consumer chose a mode.
type OnModeFunc func(ctx context.Context, mode Mode, records int)

// OnDispatchFunc is called just before a consumer call. tenant is empty for
// un-tenanted calls.
type OnDispatchFunc func(ctx context.Context, mode Mode, tenant string, records int)

// OnSuccessFunc is called after a consumer call returns nil.
type OnSuccessFunc func(ctx context.Context, mode Mode, tenant string, records int, duration time.Duration)

// OnFailureFunc is called after a branch fails, whether in preparation,
// schema validation or the consumer call.
type OnFailureFunc func(ctx context.Context, mode Mode, tenant string, records int, err error, duration time.Duration)

// OnCompleteFunc is called once per invocation, before telemetry ends, with
// the report and error the invocation returns.
type OnCompleteFunc func(ctx context.Context, report *FailureReport, err error, duration time.Duration)

// hooks holds all configured hook functions.
type hooks struct {
	onMode     []OnModeFunc
	onDispatch []OnDispatchFunc
	onSuccess  []OnSuccessFunc
	onFailure  []OnFailureFunc
	onComplete []OnCompleteFunc
}

// WithOnMode adds a hook called after the dispatch mode is decided.
//
// Example:
//
//	sqsdispatch.WithOnMode(func(ctx context.Context, mode sqsdispatch.Mode, n int) {
//	    slog.InfoContext(ctx, "dispatching", "mode", mode, "records", n)
//	})
func WithOnMode(fn OnModeFunc) Option {
	return func(e *Engine) {
		e.hooks.onMode = append(e.hooks.onMode, fn)
	}
}

// WithOnDispatch adds a hook called just before each consumer call.
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(e *Engine) {
		e.hooks.onDispatch = append(e.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after each successful consumer call.
//
// Example:
//
//	sqsdispatch.WithOnSuccess(func(ctx context.Context, mode sqsdispatch.Mode, tenant string, n int, d time.Duration) {
//	    metrics.Timing("sqsdispatch.success", d, "mode:"+mode.String())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(e *Engine) {
		e.hooks.onSuccess = append(e.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after each failed branch.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(e *Engine) {
		e.hooks.onFailure = append(e.hooks.onFailure, fn)
	}
}

// WithOnComplete adds a hook called when an invocation finishes.
func WithOnComplete(fn OnCompleteFunc) Option {
	return func(e *Engine) {
		e.hooks.onComplete = append(e.hooks.onComplete, fn)
	}
}

func (h *hooks) mode(ctx context.Context, mode Mode, records int) {
	for _, fn := range h.onMode {
		fn(ctx, mode, records)
	}
}

func (h *hooks) dispatch(ctx context.Context, mode Mode, tenant string, records int) {
	for _, fn := range h.onDispatch {
		fn(ctx, mode, tenant, records)
	}
}

func (h *hooks) success(ctx context.Context, mode Mode, tenant string, records int, d time.Duration) {
	for _, fn := range h.onSuccess {
		fn(ctx, mode, tenant, records, d)
	}
}

func (h *hooks) failure(ctx context.Context, mode Mode, tenant string, records int, err error, d time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, mode, tenant, records, err, d)
	}
}

func (h *hooks) complete(ctx context.Context, report *FailureReport, err error, d time.Duration) {
	for _, fn := range h.onComplete {
		fn(ctx, report, err, d)
	}
}
