package sqsdispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/bjaus/sqsdispatch/internal/logging"
)

// Mode is the dispatch mode chosen by the consumer for an invocation.
type Mode int

const (
	// ModeIterative calls ProcessSingleRecord once per record.
	ModeIterative Mode = iota
	// ModeBatch calls ProcessBatch once per tenant group.
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "iterative"
}

// State is the lifecycle stage of an invocation.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateResolved
	StateRouted
	StateDispatched
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateResolved:
		return "resolved"
	case StateRouted:
		return "routed"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Engine dispatches SQS batches to consumers.
//
// Engine is safe for concurrent use. Each call to Process builds its own
// consumer and failure state; only the resolver cache is shared.
type Engine struct {
	factory         ConsumerFactory
	resolver        *Resolver
	router          TenantRouter
	tenantAttribute string
	telemetry       Telemetry
	logger          *slog.Logger
	loggers         LoggerFactory
	hooks           hooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the resolver for bodies that reference stored content.
// Without one, such bodies fail with KindNotConfigured.
func WithResolver(r *Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithTenantAttribute sets the message attribute carrying the tenant code.
func WithTenantAttribute(name string) Option {
	return func(e *Engine) {
		e.tenantAttribute = name
	}
}

// WithTelemetry sets the invocation telemetry.
func WithTelemetry(t Telemetry) Option {
	return func(e *Engine) {
		e.telemetry = t
	}
}

// WithLogger sets the engine logger. Unless WithLoggerFactory is given,
// per-message loggers derive from it.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithLoggerFactory sets the factory for per-message loggers.
func WithLoggerFactory(f LoggerFactory) Option {
	return func(e *Engine) {
		e.loggers = f
	}
}

// New creates an Engine calling factory once per invocation.
//
// Example:
//
//	engine := sqsdispatch.New(
//	    func() sqsdispatch.Consumer { return &OrderConsumer{store: store} },
//	    sqsdispatch.WithResolver(resolver),
//	    sqsdispatch.WithTelemetry(sqsdispatch.NewTracingTelemetry(tracer)),
//	)
//	lambda.Start(engine.LambdaHandler())
func New(factory ConsumerFactory, opts ...Option) *Engine {
	e := &Engine{
		factory:   factory,
		telemetry: NopTelemetry{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.router = NewTenantRouter(e.tenantAttribute)
	if e.loggers == nil {
		e.loggers = MessageLoggers(e.logger)
	}
	return e
}

// LambdaHandler returns a handler for lambda.Start. It answers with the SQS
// partial batch response when messages were marked failed, and nil otherwise.
func (e *Engine) LambdaHandler() func(ctx context.Context, raw json.RawMessage) (*events.SQSEventResponse, error) {
	return func(ctx context.Context, raw json.RawMessage) (*events.SQSEventResponse, error) {
		report, err := e.Process(ctx, raw)
		if err != nil {
			return nil, err
		}
		return report.Response(), nil
	}
}

// Process validates and dispatches a raw SQS event.
//
// It returns a report when the consumer marked messages failed, nil when
// nothing was marked, and an error when any branch failed. An error means
// the whole batch should be redelivered.
//
// The processing flow:
//  1. Start telemetry
//  2. Validate the event shape
//  3. Create the consumer and ask it for the dispatch mode
//  4. Batch: normalize and resolve every record, partition by tenant,
//     validate each group, call ProcessBatch per group concurrently
//  5. Iterative: per record concurrently, normalize, resolve, validate,
//     call ProcessSingleRecord
//  6. Wait for every branch; the first error fails the invocation
//  7. End telemetry
func (e *Engine) Process(ctx context.Context, raw []byte) (*FailureReport, error) {
	return e.run(ctx, func() (events.SQSEvent, error) {
		return decodeEvent(raw)
	})
}

// ProcessEvent is Process for an event that is already decoded.
func (e *Engine) ProcessEvent(ctx context.Context, event events.SQSEvent) (*FailureReport, error) {
	return e.run(ctx, func() (events.SQSEvent, error) {
		return event, checkEvent(event)
	})
}

// invocation holds the state owned by a single Process call.
type invocation struct {
	id       string
	consumer Consumer
	schema   *Schema
	failures *FailureAggregator
	state    State
	log      *slog.Logger
}

func (inv *invocation) transition(ctx context.Context, s State) {
	inv.state = s
	inv.log.DebugContext(ctx, "state transition", slog.String(logging.FieldState, s.String()))
}

func (e *Engine) run(ctx context.Context, load func() (events.SQSEvent, error)) (report *FailureReport, err error) {
	start := time.Now()
	ctx = e.telemetry.Start(ctx)

	inv := &invocation{
		id:       uuid.NewString(),
		failures: NewFailureAggregator(),
	}
	inv.log = e.logger.With(logging.InvocationID(inv.id))
	inv.transition(ctx, StateReceived)

	defer func() {
		if err != nil {
			inv.transition(ctx, StateFailed)
			inv.log.ErrorContext(ctx, "invocation failed", logging.Error(err))
		} else {
			inv.transition(ctx, StateCompleted)
		}
		e.hooks.complete(ctx, report, err, time.Since(start))
		e.telemetry.End(ctx, err)
	}()

	event, err := load()
	if err != nil {
		return nil, err
	}
	inv.transition(ctx, StateValidated)

	inv.consumer = e.factory()
	if s, ok := inv.consumer.(FailureMarkerSetter); ok {
		s.SetFailureMarker(inv.failures)
	}
	if p, ok := inv.consumer.(SchemaProvider); ok {
		inv.schema = p.Schema()
	}
	ctx = withFailureMarker(ctx, inv.failures)

	mode := ModeIterative
	if inv.consumer.HandlesBatch(ctx, event) {
		mode = ModeBatch
	}
	annotate(ctx,
		attribute.String("sqsdispatch.invocation_id", inv.id),
		attribute.String("sqsdispatch.mode", mode.String()),
		attribute.Int("sqsdispatch.records", len(event.Records)),
	)
	e.hooks.mode(ctx, mode, len(event.Records))

	if mode == ModeBatch {
		err = e.dispatchBatch(ctx, inv, event.Records)
	} else {
		err = e.dispatchIterative(ctx, inv, event.Records)
	}
	if err != nil {
		return nil, err
	}
	return inv.failures.Report(), nil
}

// prepare normalizes msg and resolves its content. Routing depends on the
// resolved record, so nothing downstream may see a record that skipped it.
func (e *Engine) prepare(ctx context.Context, msg events.SQSMessage) (Record, error) {
	rec, err := Parse(msg)
	if err != nil {
		return Record{}, err
	}
	return e.resolver.ResolveIfNeeded(ctx, rec)
}

func (e *Engine) prepareAll(ctx context.Context, msgs []events.SQSMessage) ([]Delivery, error) {
	out := make([]Delivery, len(msgs))
	var g errgroup.Group
	for i, msg := range msgs {
		g.Go(func() error {
			rec, err := e.prepare(ctx, msg)
			if err != nil {
				return err
			}
			out[i] = Delivery{Record: rec, Logger: e.loggers.ForMessage(rec.MessageID)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) dispatchBatch(ctx context.Context, inv *invocation, msgs []events.SQSMessage) error {
	start := time.Now()
	deliveries, err := e.prepareAll(ctx, msgs)
	if err != nil {
		e.hooks.failure(ctx, ModeBatch, "", len(msgs), err, time.Since(start))
		return err
	}
	inv.transition(ctx, StateResolved)

	parts := e.router.Partition(deliveries)
	inv.transition(ctx, StateRouted)

	var g errgroup.Group
	if len(parts.Untenanted) > 0 {
		g.Go(func() error {
			return e.processGroup(ctx, inv, "", parts.Untenanted)
		})
	}
	for _, group := range parts.Tenants {
		g.Go(func() error {
			return e.processGroup(ctx, inv, group.Code, group.Deliveries)
		})
	}
	inv.transition(ctx, StateDispatched)
	return g.Wait()
}

func (e *Engine) processGroup(ctx context.Context, inv *invocation, tenant string, deliveries []Delivery) (err error) {
	start := time.Now()
	n := len(deliveries)
	defer func() {
		if err != nil {
			e.hooks.failure(ctx, ModeBatch, tenant, n, err, time.Since(start))
		}
	}()

	if inv.schema != nil {
		records := make([]Record, n)
		for i, d := range deliveries {
			records[i] = d.Record
		}
		if err := inv.schema.Validate(records); err != nil {
			return err
		}
	}

	if tenant != "" {
		ctx, err = e.tenantContext(ctx, inv.consumer, tenant)
		if err != nil {
			return err
		}
	}

	e.hooks.dispatch(ctx, ModeBatch, tenant, n)
	if err := inv.consumer.ProcessBatch(ctx, deliveries); err != nil {
		return err
	}
	e.hooks.success(ctx, ModeBatch, tenant, n, time.Since(start))
	return nil
}

func (e *Engine) dispatchIterative(ctx context.Context, inv *invocation, msgs []events.SQSMessage) error {
	var g errgroup.Group
	for _, msg := range msgs {
		g.Go(func() error {
			return e.processRecord(ctx, inv, msg)
		})
	}
	inv.transition(ctx, StateDispatched)
	return g.Wait()
}

func (e *Engine) processRecord(ctx context.Context, inv *invocation, msg events.SQSMessage) (err error) {
	start := time.Now()
	var tenant string
	defer func() {
		if err != nil {
			e.hooks.failure(ctx, ModeIterative, tenant, 1, err, time.Since(start))
		}
	}()

	rec, err := e.prepare(ctx, msg)
	if err != nil {
		return err
	}

	if inv.schema != nil {
		if err := inv.schema.Validate([]Record{rec}); err != nil {
			return err
		}
	}

	if code, ok := e.router.Tenant(rec); ok {
		tenant = code
		ctx, err = e.tenantContext(ctx, inv.consumer, tenant)
		if err != nil {
			return err
		}
	}

	e.hooks.dispatch(ctx, ModeIterative, tenant, 1)
	if err := inv.consumer.ProcessSingleRecord(ctx, rec, e.loggers.ForMessage(rec.MessageID)); err != nil {
		return err
	}
	e.hooks.success(ctx, ModeIterative, tenant, 1, time.Since(start))
	return nil
}

// tenantContext scopes ctx to tenant and lets the consumer open its session.
func (e *Engine) tenantContext(ctx context.Context, c Consumer, tenant string) (context.Context, error) {
	ctx = withTenant(ctx, tenant)
	if s, ok := c.(TenantSessioner); ok {
		return s.SetTenantSession(ctx, tenant)
	}
	return ctx, nil
}
