package sqsdispatch

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// Consumer holds the processing logic for one invocation.
//
// The engine creates a fresh Consumer per invocation through a
// ConsumerFactory, asks it once which mode to use, then calls ProcessBatch
// once per tenant group or ProcessSingleRecord once per record. Calls within
// one invocation may run concurrently.
//
// Embed IterativeConsumer or BatchConsumer to get the mode and no-op
// defaults, then override the method that matters:
//
//	type OrderConsumer struct {
//	    sqsdispatch.IterativeConsumer
//	    store OrderStore
//	}
//
//	func (c *OrderConsumer) ProcessSingleRecord(ctx context.Context, r sqsdispatch.Record, log *slog.Logger) error {
//	    var o Order
//	    if err := r.Decode(&o); err != nil {
//	        return err
//	    }
//	    return c.store.Save(ctx, o)
//	}
type Consumer interface {
	// HandlesBatch decides the dispatch mode. It sees the whole event, so
	// it can switch on record count.
	HandlesBatch(ctx context.Context, event events.SQSEvent) bool

	// ProcessBatch processes one tenant group, or the un-tenanted group.
	ProcessBatch(ctx context.Context, deliveries []Delivery) error

	// ProcessSingleRecord processes one record.
	ProcessSingleRecord(ctx context.Context, record Record, logger *slog.Logger) error
}

// ConsumerFactory creates the Consumer for one invocation.
type ConsumerFactory func() Consumer

// IterativeConsumer provides defaults for consumers that process records one
// at a time.
type IterativeConsumer struct{}

func (IterativeConsumer) HandlesBatch(context.Context, events.SQSEvent) bool { return false }
func (IterativeConsumer) ProcessBatch(context.Context, []Delivery) error     { return nil }
func (IterativeConsumer) ProcessSingleRecord(context.Context, Record, *slog.Logger) error {
	return nil
}

// BatchConsumer provides defaults for consumers that process whole groups.
type BatchConsumer struct{}

func (BatchConsumer) HandlesBatch(context.Context, events.SQSEvent) bool { return true }
func (BatchConsumer) ProcessBatch(context.Context, []Delivery) error     { return nil }
func (BatchConsumer) ProcessSingleRecord(context.Context, Record, *slog.Logger) error {
	return nil
}

// RecordFunc is a function adapter for iterative consumers:
//
//	engine := sqsdispatch.New(sqsdispatch.Iterative(func(ctx context.Context, r sqsdispatch.Record, log *slog.Logger) error {
//	    return nil
//	}))
type RecordFunc func(ctx context.Context, record Record, logger *slog.Logger) error

func (RecordFunc) HandlesBatch(context.Context, events.SQSEvent) bool { return false }
func (RecordFunc) ProcessBatch(context.Context, []Delivery) error     { return nil }

// ProcessSingleRecord implements the Consumer interface.
func (f RecordFunc) ProcessSingleRecord(ctx context.Context, record Record, logger *slog.Logger) error {
	return f(ctx, record, logger)
}

// BatchFunc is a function adapter for batch consumers.
type BatchFunc func(ctx context.Context, deliveries []Delivery) error

func (BatchFunc) HandlesBatch(context.Context, events.SQSEvent) bool { return true }

// ProcessBatch implements the Consumer interface.
func (f BatchFunc) ProcessBatch(ctx context.Context, deliveries []Delivery) error {
	return f(ctx, deliveries)
}

func (BatchFunc) ProcessSingleRecord(context.Context, Record, *slog.Logger) error { return nil }

// Iterative returns a factory for a stateless iterative consumer.
func Iterative(fn RecordFunc) ConsumerFactory {
	return func() Consumer { return fn }
}

// Batch returns a factory for a stateless batch consumer.
func Batch(fn BatchFunc) ConsumerFactory {
	return func() Consumer { return fn }
}

// SchemaProvider is an optional interface for consumers that declare the
// shape of their bodies. Bodies are validated before any processing call.
type SchemaProvider interface {
	Schema() *Schema
}

// FailureMarkerSetter is an optional interface for consumers that mark
// individual messages failed. The engine calls SetFailureMarker right after
// creating the consumer, with the aggregator of that invocation.
type FailureMarkerSetter interface {
	SetFailureMarker(m FailureMarker)
}

// TenantSessioner is an optional interface for consumers that need a tenant
// scoped session. It is called before processing each tenant group (batch)
// or each tenant-tagged record (iterative), and the returned context is used
// for that call.
type TenantSessioner interface {
	SetTenantSession(ctx context.Context, tenant string) (context.Context, error)
}

type tenantKey struct{}

// TenantFromContext returns the tenant code the current call is scoped to.
func TenantFromContext(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(tenantKey{}).(string)
	return code, ok
}

func withTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}
