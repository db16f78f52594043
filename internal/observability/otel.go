package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/careplan-backend/internal/platform/envutil"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

const instrumentationName = "github.com/yungbote/careplan-backend"

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// tracingEnv is the OTEL_* environment read once at startup.
type tracingEnv struct {
	Enabled     bool
	SampleRatio float64
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
}

func readTracingEnv() tracingEnv {
	te := tracingEnv{SampleRatio: 0.1}
	te.Enabled, _ = envutil.Bool("OTEL_ENABLED")
	te.Insecure, _ = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE")
	te.Endpoint, _ = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT")
	if v, ok := envutil.String("OTEL_SAMPLER_RATIO"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			te.SampleRatio = min(max(f, 0), 1)
		}
	}
	if parts, ok := envutil.List("OTEL_EXPORTER_OTLP_HEADERS"); ok {
		te.Headers = parseHeaders(parts)
	}
	return te
}

// parseHeaders reads key=value pairs; malformed pairs are skipped.
func parseHeaders(parts []string) map[string]string {
	out := map[string]string{}
	for _, p := range parts {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set. The returned
// shutdown func is nil when tracing stays off.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		te := readTracingEnv()
		if !te.Enabled {
			return
		}
		if log == nil {
			log = logger.NewNop()
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = "careplan-gateway"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(te.SampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := newExporter(ctx, te)
		if err != nil {
			log.Warn("otel exporter init failed (continuing)", "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown

		exp := te.Endpoint
		if exp == "" {
			exp = "stdout"
		}
		log.Info("otel tracing initialized", "service", name, "exporter", exp, "sample_ratio", te.SampleRatio)
	})
	return otelShutdown
}

// Tracer returns the process tracer; spans are no-ops until InitOTel installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// newExporter prefers OTLP over HTTP and falls back to stdout when no endpoint is configured.
func newExporter(ctx context.Context, te tracingEnv) (sdktrace.SpanExporter, error) {
	if te.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(te.Endpoint)}
	if te.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if te.Headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(te.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
