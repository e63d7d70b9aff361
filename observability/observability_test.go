package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/streamkit/stream"
)

func newTestMetrics(t *testing.T) (*StreamMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewStreamMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected int64 sum, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrument_RecordsChunksBytesAndErrors(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	src := stream.MapResult[string, []byte](
		stream.FromSlice([]string{"ab", "bad", "cde"}),
		func(s string) []byte { return []byte(s) },
		nil,
	)
	it := Instrument(&failOn{inner: src, bad: "bad"}, metrics, "/api/events")

	ctx := context.Background()
	for {
		_, ok, err := it.Next(ctx)
		if err == nil && !ok {
			break
		}
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}

	chunks, bytes, errs := it.Stats()
	if chunks != 2 || bytes != 5 || errs != 1 {
		t.Errorf("stats: chunks=%d bytes=%d errors=%d", chunks, bytes, errs)
	}

	got := collect(t, reader)
	if v := sumOf(t, got["stream.chunks"]); v != 2 {
		t.Errorf("stream.chunks = %d", v)
	}
	if v := sumOf(t, got["stream.bytes"]); v != 5 {
		t.Errorf("stream.bytes = %d", v)
	}
	if v := sumOf(t, got["stream.errors"]); v != 1 {
		t.Errorf("stream.errors = %d", v)
	}
	if v := sumOf(t, got["stream.active"]); v != 0 {
		t.Errorf("stream.active = %d after close", v)
	}
	if _, ok := got["stream.duration"]; !ok {
		t.Error("expected stream.duration to be recorded")
	}
}

func TestInstrument_ErrorKindAttribute(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	it := Instrument(stream.Fail[[]byte](stream.EncodingError(errors.New("x"))), metrics, "/r")
	_, _, _ = it.Next(context.Background())
	_ = it.Close()

	sum := collect(t, reader)["stream.errors"].Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected one data point, got %d", len(sum.DataPoints))
	}
	kind, ok := sum.DataPoints[0].Attributes.Value(AttrErrorKind)
	if !ok || kind.AsString() != "encoding" {
		t.Errorf("expected kind=encoding, got %v", kind.AsString())
	}
}

func TestInstrument_NilMetrics(t *testing.T) {
	it := Instrument(stream.FromSlice([][]byte{[]byte("x")}), nil, "/r")
	out, err := stream.ReadAll(context.Background(), it)
	if err != nil || string(out) != "x" {
		t.Fatalf("got %q %v", out, err)
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "ParentBased{root:AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		got := sampler(tc.rate).Description()
		if len(got) < len(tc.want) || got[:len(tc.want)] != tc.want {
			t.Errorf("rate %v: got %q", tc.rate, got)
		}
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := (&Config{SampleRate: 1.5}).Validate(); err == nil {
		t.Error("expected sample rate above 1 to fail")
	}
}

func TestInitTracer(t *testing.T) {
	cfg := Config{Endpoint: "localhost:4318", Insecure: true, SampleRate: 1}
	tp, err := InitTracer(context.Background(), cfg, Service{Name: "streamd", Version: "test"})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t, tp.Shutdown)

	_, span := StartSpan(context.Background(), SpanStreamResponse)
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span from the installed provider")
	}
	span.End()
}

func TestInitMeter(t *testing.T) {
	cfg := Config{Endpoint: "localhost:4318", Insecure: true, MetricInterval: time.Minute}
	mp, err := InitMeter(context.Background(), cfg, Service{Name: "streamd", Version: "test"})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t, mp.Shutdown)

	if _, err := NewStreamMetrics(Meter()); err != nil {
		t.Errorf("NewStreamMetrics on installed provider: %v", err)
	}
}

func TestNewResource_CarriesServiceAttributes(t *testing.T) {
	res, err := newResource(Service{Name: "streamd", Version: "1.2.3", Environment: "test"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"service.name":    "streamd",
		"service.version": "1.2.3",
		"environment":     "test",
	}
	got := make(map[string]string)
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

// shutdown stops a provider without waiting on the unreachable collector.
func shutdown(t *testing.T, fn func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = fn(ctx)
}

// failOn turns the item equal to bad into a source error slot.
type failOn struct {
	inner stream.Iterator[[]byte]
	bad   string
}

func (f *failOn) Next(ctx context.Context) ([]byte, bool, error) {
	b, ok, err := f.inner.Next(ctx)
	if ok && string(b) == f.bad {
		return nil, false, stream.SourceError(errors.New("bad item"))
	}
	return b, ok, err
}

func (f *failOn) Close() error { return f.inner.Close() }
