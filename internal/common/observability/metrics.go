// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability owns the otel meter and tracer providers for one process.
// A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	runCounter     otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
}

type Options struct {
	ServiceName string
	// Registerer receives the otel Prometheus collector. Defaults to
	// prometheus.DefaultRegisterer so /metrics serves both.
	Registerer     promclient.Registerer
	TracingEnabled bool
	SampleRatio    float64
	// SpanProcessor is added to the tracer provider when tracing is enabled.
	SpanProcessor sdktrace.SpanProcessor
}

// New builds providers on the default registerer and installs them globally.
func New(serviceName string) *Observability {
	o, err := NewWithOptions(Options{ServiceName: serviceName})
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}
	}
	o.InstallGlobal()
	return o
}

// InstallGlobal registers the providers with the otel globals.
func (o *Observability) InstallGlobal() {
	if o == nil {
		return
	}
	if o.meterProvider != nil {
		otel.SetMeterProvider(o.meterProvider)
	}
	if o.tracerProvider != nil {
		otel.SetTracerProvider(o.tracerProvider)
	}
}

// NewWithOptions builds providers without touching otel globals.
func NewWithOptions(opts Options) (*Observability, error) {
	reg := opts.Registerer
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	meter := provider.Meter(opts.ServiceName)

	runCounter, _ := meter.Int64Counter(
		"research.runs",
		otelmetric.WithDescription("Number of research pipeline runs"),
	)

	runDuration, _ := meter.Float64Histogram(
		"research.run.duration",
		otelmetric.WithDescription("Research pipeline run duration"),
		otelmetric.WithUnit("ms"),
	)

	o := &Observability{
		meterProvider: provider,
		runCounter:    runCounter,
		runDuration:   runDuration,
	}

	if opts.TracingEnabled {
		ratio := opts.SampleRatio
		if ratio <= 0 {
			ratio = 1
		}
		tpOpts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		}
		if opts.SpanProcessor != nil {
			tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(opts.SpanProcessor))
		}
		o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
		o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
	} else {
		o.tracer = noop.NewTracerProvider().Tracer(opts.ServiceName)
	}

	return o, nil
}

func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracer
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordRun(ctx context.Context, outcome string) {
	if o != nil && o.runCounter != nil {
		o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordRunDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o != nil && o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
