package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds every metric the orchestrator and agents record. The
// underlying meter provider is a no-op unless Setup is called with
// OTEL.Enabled, so recording is always safe even without a configured
// collector.
type Metrics struct {
	AgentInvocationCount metric.Int64Counter
	AgentDuration        metric.Float64Histogram
	PlanDuration         metric.Float64Histogram
	CacheHitCount        metric.Int64Counter
	CacheMissCount       metric.Int64Counter
}

// Setup installs an in-process OpenTelemetry meter provider and, when
// endpoint is non-empty, a batching span processor exporting to an OTLP/gRPC
// collector at endpoint. StartSpan's tracer is a no-op until this has run,
// so callers that skip Setup (tests, or OTEL.Enabled=false) still record
// safely, they just get no-op spans.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	shutdown := meterProvider.Shutdown
	if endpoint != "" {
		traceExporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}

		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		shutdown = func(ctx context.Context) error {
			traceErr := tracerProvider.Shutdown(ctx)
			metricErr := meterProvider.Shutdown(ctx)
			if traceErr != nil {
				return traceErr
			}
			return metricErr
		}
	}

	return shutdown, nil
}

// InitMetrics registers the counters and histograms this module records.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/careatlas/queryengine")

	agentInvocationCount, err := meter.Int64Counter(
		"query_engine.agent.invocation.count",
		metric.WithDescription("Number of agent invocations by name and outcome"),
	)
	if err != nil {
		return nil, err
	}

	agentDuration, err := meter.Float64Histogram(
		"query_engine.agent.duration",
		metric.WithDescription("Agent invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	planDuration, err := meter.Float64Histogram(
		"query_engine.plan.duration",
		metric.WithDescription("Full plan execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"query_engine.cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"query_engine.cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AgentInvocationCount: agentInvocationCount,
		AgentDuration:        agentDuration,
		PlanDuration:         planDuration,
		CacheHitCount:        cacheHitCount,
		CacheMissCount:       cacheMissCount,
	}, nil
}

// StartSpan starts a new trace span.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/careatlas/queryengine")
	return tracer.Start(ctx, spanName)
}

// RecordAgentMetric records one agent invocation's outcome and duration.
func RecordAgentMetric(ctx context.Context, metrics *Metrics, agent, outcome string, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("agent", agent),
		attribute.String("outcome", outcome),
	}
	metrics.AgentInvocationCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.AgentDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPlanMetric records the total duration of a full plan execution.
func RecordPlanMetric(ctx context.Context, metrics *Metrics, intent string, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("intent", intent)}
	metrics.PlanDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func RecordCacheHit(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}
