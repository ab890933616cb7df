package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordResolution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	op := Operation{Name: "resolve", MenuID: "main", UserID: "u1", TenantID: "t1"}

	m.RecordResolution(ctx, op, 5*time.Millisecond, true, nil)
	m.RecordResolution(ctx, op, 7*time.Millisecond, false, errors.New("no menu"))

	rm := collect(t, reader)
	if got := sumOf(t, findMetric(rm, "nav.resolve.total")); got != 2 {
		t.Errorf("total = %d, want 2", got)
	}
	if got := sumOf(t, findMetric(rm, "nav.resolve.errors")); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}

	hist := findMetric(rm, "nav.resolve.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram missing")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("histogram count = %d, want 2", count)
	}
}

func TestMetrics_UserIDNotAnAttribute(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordResolution(context.Background(), Operation{Name: "resolve", UserID: "u1"}, time.Millisecond, false, nil)

	sum := findMetric(collect(t, reader), "nav.resolve.total").Data.(metricdata.Sum[int64])
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if kv.Key == attribute.Key("enduser.id") || kv.Value.AsString() == "u1" {
				t.Errorf("user id leaked into metric attributes: %v", kv)
			}
		}
	}
}

func TestMetrics_RecordCacheEvent(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordCacheEvent(ctx, CacheHit, 3)
	m.RecordCacheEvent(ctx, CacheEviction, 2)
	m.RecordCacheEvent(ctx, CacheMiss, 0)

	events := findMetric(collect(t, reader), "nav.cache.events")
	if got := sumOf(t, events); got != 5 {
		t.Errorf("cache events = %d, want 5", got)
	}
	sum := events.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Errorf("data points = %d, want 2 (zero counts skipped)", len(sum.DataPoints))
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordResolution(context.Background(), Operation{Name: "resolve"}, time.Second, true, nil)
	m.RecordCacheEvent(context.Background(), CacheHit, 1)
}
