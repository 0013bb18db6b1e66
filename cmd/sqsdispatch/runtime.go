package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/bjaus/sqsdispatch"
	"github.com/bjaus/sqsdispatch/awsstore"
	"github.com/bjaus/sqsdispatch/internal/config"
	"github.com/bjaus/sqsdispatch/internal/logging"
	"github.com/bjaus/sqsdispatch/metrics"
	"github.com/bjaus/sqsdispatch/miniostore"
)

// runtime is an engine plus the resources that must be released with it.
type runtime struct {
	engine  *sqsdispatch.Engine
	closers []func(context.Context) error
}

// Close releases every resource, reporting all failures.
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, factory sqsdispatch.ConsumerFactory) (*runtime, error) {
	rt := &runtime{}
	opts := []sqsdispatch.Option{
		sqsdispatch.WithLogger(logger),
		sqsdispatch.WithTenantAttribute(cfg.Tenant.Attribute),
	}

	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, sqsdispatch.WithResolver(resolver))

	if cfg.Tracing.Enabled {
		telemetry, shutdown, err := newTracing(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, shutdown)
		opts = append(opts, sqsdispatch.WithTelemetry(telemetry))
		logger.Info("tracing enabled", slog.String("endpoint", cfg.Tracing.Endpoint))
	}

	if cfg.Metrics.Enabled {
		metricOpts, shutdown, err := newMetrics(cfg.Metrics, logger)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		rt.closers = append(rt.closers, shutdown)
		opts = append(opts, metricOpts...)
	}

	rt.engine = sqsdispatch.New(factory, opts...)
	return rt, nil
}

// newResolver returns nil when resolution is disabled; the engine then
// rejects records that reference stored content.
func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqsdispatch.Resolver, error) {
	if !cfg.Resolver.Enabled {
		return nil, nil
	}

	store, err := awsstore.New(ctx, awsstore.Config{
		RegistryRegion: cfg.Registry.Region,
		ResourceOwner:  cfg.Registry.ResourceOwner,
		SessionName:    cfg.Credentials.SessionName,
		Duration:       cfg.Credentials.Duration,
	})
	if err != nil {
		return nil, err
	}

	var objects sqsdispatch.ObjectFetcher = store.Objects
	if cfg.Objects.Endpoint != "" {
		objects, err = miniostore.New(miniostore.Config{
			Endpoint:        cfg.Objects.Endpoint,
			UseSSL:          cfg.Objects.UseSSL,
			AccessKeyID:     cfg.Objects.AccessKeyID,
			SecretAccessKey: cfg.Objects.SecretAccessKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
	}

	return sqsdispatch.NewResolver(store.Registry, store.Exchanger, objects,
		sqsdispatch.WithRegistryParameter(cfg.Registry.ParameterName),
		sqsdispatch.WithResolverLogger(logger),
	), nil
}

// newTracing exports spans synchronously so nothing is lost when the
// Lambda environment freezes between invocations.
func newTracing(ctx context.Context, cfg config.TracingConfig) (sqsdispatch.Telemetry, func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	return sqsdispatch.NewTracingTelemetry(tp.Tracer("github.com/bjaus/sqsdispatch")), tp.Shutdown, nil
}

// newMetrics registers the collectors on a private registry and, when a
// listen address is set, serves them over HTTP.
func newMetrics(cfg config.MetricsConfig, logger *slog.Logger) ([]sqsdispatch.Option, func(context.Context) error, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.Namespace)
	if err := m.Register(reg); err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	noop := func(context.Context) error { return nil }
	if cfg.Listen == "" {
		return m.Options(), noop, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", logging.Error(err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", cfg.Listen))

	return m.Options(), srv.Shutdown, nil
}
