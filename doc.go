// Package sqsdispatch dispatches SQS batches delivered to a Lambda function to
// pluggable consumers and reports partial batch failures.
//
// The engine validates the event, decodes every message body, swaps bodies
// that point at content in object storage for that content, groups records by
// tenant, and calls the consumer per record or per tenant group. Consumers
// mark individual messages failed; the engine returns those IDs as the SQS
// partial batch response so only they are redelivered.
//
// # Quick Start
//
// Write a consumer:
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
//	    if err := c.store.Save(ctx, o); errors.Is(err, ErrLocked) {
//	        log.Warn("order locked, redelivering")
//	        sqsdispatch.MarkFailed(ctx, r.MessageID)
//	        return nil
//	    }
//	    return err
//	}
//
// Wire it into an engine and start the Lambda runtime:
//
//	engine := sqsdispatch.New(func() sqsdispatch.Consumer {
//	    return &OrderConsumer{store: store}
//	})
//	lambda.Start(engine.LambdaHandler())
//
// # Modes
//
// The consumer picks the mode once per invocation through HandlesBatch, which
// receives the whole event:
//
//   - Iterative: ProcessSingleRecord runs once per record, all records
//     concurrently. The per-message logger is passed as an argument.
//   - Batch: ProcessBatch runs once per tenant group and once for records
//     without a tenant, all groups concurrently. Each Delivery carries its
//     record and per-message logger.
//
// Embed IterativeConsumer or BatchConsumer for defaults, or use the RecordFunc
// and BatchFunc adapters with Iterative and Batch.
//
// # Tenants
//
// The tenant code is the string value of a message attribute, "tenant-code"
// unless WithTenantAttribute says otherwise. Before each tenant scoped call the
// engine stores the code in the context (see TenantFromContext) and, when the
// consumer implements TenantSessioner, lets it open a session.
//
// Tenant groups keep arrival order. Grouping happens only after content has
// been resolved, because the reference may sit on any record.
//
// # Stored Content
//
// A body that carries one of these fields is replaced by the object it names:
//
//	{"pathRef": "orders/2024/123.json"}
//	{"location": {"bucketName": "b", "region": "us-east-1", "path": "orders/123.json"}}
//
// A pathRef is looked up against the shared bucket list, read from a Registry
// and cached for the life of the Resolver. The default bucket is tried first,
// then the fallback, each with credentials from assuming the bucket's role.
// An explicit location is read once with the ambient credentials. See the
// awsstore package for the AWS implementations.
//
// # Schemas
//
// Consumers implementing SchemaProvider have every body checked before any
// processing call. A failed check fails the invocation.
//
// # Error Handling
//
// Any failure in a branch (malformed body, schema violation, resolution
// failure, or an error from the consumer) fails the whole invocation once all
// branches have finished, so the platform redelivers the batch. Consumer errors
// are returned unchanged. Use MarkFailed, or a FailureMarkerSetter, to fail
// single messages without failing the batch.
//
// # Hooks
//
// Hooks observe dispatch without coupling to a metrics system:
//
//	engine := sqsdispatch.New(factory,
//	    sqsdispatch.WithOnFailure(func(ctx context.Context, mode sqsdispatch.Mode, tenant string, n int, err error, d time.Duration) {
//	        slog.ErrorContext(ctx, "dispatch failed", "tenant", tenant, "error", err)
//	    }),
//	)
//
// The metrics package provides Prometheus collectors built on these hooks.
//
// # Thread Safety
//
// Engine and Resolver are safe for concurrent use. Hooks and consumers may be
// called from several goroutines within one invocation.
package sqsdispatch
