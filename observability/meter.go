package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamkit/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The caller shuts the provider down on exit.
func InitMeter(ctx context.Context, cfg Config, svc Service) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the module's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// StreamMetrics holds the instruments recorded for streamed responses.
type StreamMetrics struct {
	chunks   metric.Int64Counter
	bytes    metric.Int64Counter
	errors   metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

// NewStreamMetrics creates the stream instruments on meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	chunks, err := meter.Int64Counter("stream.chunks",
		metric.WithDescription("Chunks emitted by stream encoders"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.chunks counter: %w", err)
	}
	bytes, err := meter.Int64Counter("stream.bytes",
		metric.WithDescription("Bytes emitted by stream encoders"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.bytes counter: %w", err)
	}
	errs, err := meter.Int64Counter("stream.errors",
		metric.WithDescription("Failed stream slots by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.errors counter: %w", err)
	}
	active, err := meter.Int64UpDownCounter("stream.active",
		metric.WithDescription("Streams currently being consumed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.active counter: %w", err)
	}
	duration, err := meter.Float64Histogram("stream.duration",
		metric.WithDescription("Time from first pull to close"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.duration histogram: %w", err)
	}
	return &StreamMetrics{chunks: chunks, bytes: bytes, errors: errs, active: active, duration: duration}, nil
}

func (m *StreamMetrics) started(ctx context.Context, route string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrRoute, route)))
}

func (m *StreamMetrics) chunk(ctx context.Context, route string, n int) {
	attrs := metric.WithAttributes(attribute.String(AttrRoute, route))
	m.chunks.Add(ctx, 1, attrs)
	m.bytes.Add(ctx, int64(n), attrs)
}

func (m *StreamMetrics) failed(ctx context.Context, route, kind string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRoute, route),
		attribute.String(AttrErrorKind, kind),
	))
}

func (m *StreamMetrics) finished(ctx context.Context, route string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrRoute, route))
	m.active.Add(ctx, -1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
