package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the OpenTelemetry meter and tracer providers behind the
// modscope metrics (index builds, searches, graph recomputes, tool calls).
// A disabled provider is fully functional: Metrics() returns a no-op
// recorder and Tracer() returns a no-op tracer, so call sites never need an
// enabled check of their own.
type Provider struct {
	config             Config
	meterProvider      *metric.MeterProvider
	tracerProvider     *sdktrace.TracerProvider
	metrics            *Metrics
	prometheusExporter *prometheus.Exporter
	enabled            bool
}

// NewProvider builds the telemetry stack from config. The returned provider
// is also installed as the process-global otel meter and tracer provider.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{
			config:  config,
			enabled: false,
			metrics: &Metrics{},
		}, nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	provider := &Provider{
		config:  config,
		enabled: true,
	}

	if err := provider.initMeterProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("initializing meter provider: %w", err)
	}
	if err := provider.initTracerProvider(ctx, res); err != nil {
		if shutdownErr := provider.meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("shutting down meter provider during cleanup: %w", shutdownErr))
		}
		return nil, fmt.Errorf("initializing tracer provider: %w", err)
	}

	otel.SetMeterProvider(provider.meterProvider)
	otel.SetTracerProvider(provider.tracerProvider)

	meter := provider.meterProvider.Meter(config.ServiceName)
	provider.metrics, err = NewMetrics(meter, config.DetailedLabels)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics recorder: %w", err)
	}

	return provider, nil
}

// newResource describes this modscope instance to the telemetry backend.
// The instance ID falls back to the hostname, which in Kubernetes is the
// pod name.
func newResource(ctx context.Context, config Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}

	if config.ServiceInstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(config.ServiceInstanceID))
	} else if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.ServiceInstanceID(hostname))
	}
	if config.K8sNamespace != "" {
		attrs = append(attrs, semconv.K8SNamespaceName(config.K8sNamespace))
	}
	if config.K8sPodName != "" {
		attrs = append(attrs, semconv.K8SPodName(config.K8sPodName))
	}

	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func (p *Provider) initMeterProvider(ctx context.Context, res *resource.Resource) error {
	var reader metric.Reader

	switch p.config.MetricsExporter {
	case ExporterPrometheus:
		// The prometheus exporter doubles as the reader; keep a handle so
		// the metrics server can mount its HTTP endpoint.
		promExporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("creating prometheus exporter: %w", err)
		}
		p.prometheusExporter = promExporter
		reader = promExporter

	case ExporterOTLP:
		if p.config.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for OTLP metrics export; set OTEL_EXPORTER_OTLP_ENDPOINT or use the 'prometheus' exporter")
		}
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(p.config.OTLPEndpoint),
		}
		if p.config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("creating OTLP metrics exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)

	case ExporterStdout:
		slog.Warn("stdout metrics exporter enabled, intended for local debugging only",
			"component", "instrumentation",
			"exporter", ExporterStdout,
		)
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("creating stdout metrics exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)

	default:
		return fmt.Errorf("unsupported metrics exporter: %s", p.config.MetricsExporter)
	}

	p.meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	)
	return nil
}

func (p *Provider) initTracerProvider(ctx context.Context, res *resource.Resource) error {
	if p.config.TracingExporter == ExporterNone {
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		)
		return nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch p.config.TracingExporter {
	case ExporterOTLP:
		if p.config.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for OTLP tracing export")
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(p.config.OTLPEndpoint),
		}
		if p.config.OTLPInsecure {
			// Tool-call spans carry module names and component paths;
			// plaintext transport belongs in local setups only.
			slog.Warn("OTLP insecure transport enabled, spans travel unencrypted",
				"component", "instrumentation",
				"exporter", ExporterOTLP,
				"endpoint", p.config.OTLPEndpoint,
			)
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("creating OTLP trace exporter: %w", err)
		}

	case ExporterStdout:
		slog.Warn("stdout traces exporter enabled, intended for local debugging only",
			"component", "instrumentation",
			"exporter", ExporterStdout,
		)
		exporter, err = stdouttrace.New()
		if err != nil {
			return fmt.Errorf("creating stdout trace exporter: %w", err)
		}

	default:
		return fmt.Errorf("unsupported tracing exporter: %s", p.config.TracingExporter)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate),
		)),
	)
	return nil
}

// Metrics returns the metrics recorder. Never nil; a no-op recorder when the
// provider is disabled.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer for creating spans, no-op when disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.enabled || p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// PrometheusHandler returns the prometheus exporter backing the /metrics
// endpoint, or nil when a different metrics exporter is configured.
func (p *Provider) PrometheusHandler() interface{} {
	if p.prometheusExporter == nil {
		return nil
	}
	return p.prometheusExporter
}

// Shutdown flushes pending telemetry and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter provider: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether telemetry is being collected.
func (p *Provider) Enabled() bool {
	return p.enabled
}
