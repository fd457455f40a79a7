// Package observability wires OpenTelemetry metrics (prometheus exporter) and
// tracing (jaeger exporter) for the portal.
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerShutdown func(context.Context) error
	meter          otelmetric.Meter

	progressComputed otelmetric.Int64Counter
	progressDuration otelmetric.Float64Histogram
	acceptOutcomes   otelmetric.Int64Counter
	jobCounter       otelmetric.Int64Counter
	jobDuration      otelmetric.Float64Histogram
}

// New registers the global meter provider and, when jaegerEndpoint is set, the
// global tracer provider. A failed exporter leaves that signal disabled.
func New(serviceName, jaegerEndpoint string) *Observability {
	o := &Observability{}

	if jaegerEndpoint != "" {
		shutdown, err := setupTracing(serviceName, jaegerEndpoint)
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			o.tracerShutdown = shutdown
		}
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.progressComputed, _ = o.meter.Int64Counter(
		"progress.computed",
		otelmetric.WithDescription("Status-aware progress computations"),
	)
	o.progressDuration, _ = o.meter.Float64Histogram(
		"progress.duration",
		otelmetric.WithDescription("Progress computation duration"),
		otelmetric.WithUnit("ms"),
	)
	o.acceptOutcomes, _ = o.meter.Int64Counter(
		"review.accept",
		otelmetric.WithDescription("Accept attempts by outcome"),
	)
	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// NewNoop returns an Observability whose recorders do nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordProgress(ctx context.Context, duration time.Duration, source string) {
	if o == nil || o.progressComputed == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("source", source))
	o.progressComputed.Add(ctx, 1, attrs)
	o.progressDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordAccept(ctx context.Context, outcome string) {
	if o == nil || o.acceptOutcomes == nil {
		return
	}
	o.acceptOutcomes.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerShutdown != nil {
		_ = o.tracerShutdown(ctx)
	}
}
