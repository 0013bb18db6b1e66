package sqsdispatch

import (
	"context"
	"slices"
	"sync"

	"github.com/aws/aws-lambda-go/events"
)

// FailureMarker records that a message could not be processed and should be
// redelivered. Marking never fails and never aborts the invocation.
type FailureMarker interface {
	MarkFailed(messageID string)
}

// FailureReport lists the messages marked failed during one invocation, in
// the order they were marked.
type FailureReport struct {
	FailedIDs []string
}

// Response renders the report as the SQS partial batch response.
func (r *FailureReport) Response() *events.SQSEventResponse {
	if r == nil {
		return nil
	}
	resp := &events.SQSEventResponse{
		BatchItemFailures: make([]events.SQSBatchItemFailure, 0, len(r.FailedIDs)),
	}
	for _, id := range r.FailedIDs {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
	}
	return resp
}

// FailureAggregator accumulates failed message IDs for a single invocation.
// It is safe for concurrent use by the goroutines of one dispatch.
type FailureAggregator struct {
	mu  sync.Mutex
	ids []string
}

// NewFailureAggregator returns an empty aggregator.
func NewFailureAggregator() *FailureAggregator {
	return &FailureAggregator{}
}

// MarkFailed appends messageID. Duplicates are kept.
func (a *FailureAggregator) MarkFailed(messageID string) {
	a.mu.Lock()
	a.ids = append(a.ids, messageID)
	a.mu.Unlock()
}

// Report returns the marked IDs, or nil when nothing was marked.
func (a *FailureAggregator) Report() *FailureReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.ids) == 0 {
		return nil
	}
	return &FailureReport{FailedIDs: slices.Clone(a.ids)}
}

type failureMarkerKey struct{}

func withFailureMarker(ctx context.Context, m FailureMarker) context.Context {
	return context.WithValue(ctx, failureMarkerKey{}, m)
}

// MarkFailed marks messageID failed on the invocation that owns ctx. Consumers
// call it with the context they were handed. Outside a dispatch it does nothing.
func MarkFailed(ctx context.Context, messageID string) {
	if m, ok := ctx.Value(failureMarkerKey{}).(FailureMarker); ok {
		m.MarkFailed(messageID)
	}
}
