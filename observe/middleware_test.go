package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddleware_SuccessPath(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	metrics, reader := newTestMetrics(t)
	var buf bytes.Buffer

	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &buf))
	wrapped := mw.Wrap(func(ctx context.Context, op Operation) (bool, error) {
		return true, nil
	})

	hit, err := wrapped(context.Background(), Operation{Name: "resolve", MenuID: "main", UserID: "u1"})
	if err != nil || !hit {
		t.Fatalf("wrapped = (%v, %v), want (true, nil)", hit, err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "nav.resolve" {
		t.Errorf("span name = %q, want nav.resolve", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
	var sawHit bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == attribute.Key("nav.cache_hit") && kv.Value.AsBool() {
			sawHit = true
		}
	}
	if !sawHit {
		t.Error("nav.cache_hit=true attribute missing")
	}

	if got := sumOf(t, findMetric(collect(t, reader), "nav.resolve.total")); got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
	if lines := decodeLines(t, &buf); len(lines) != 1 || lines[0]["menu_id"] != "main" {
		t.Errorf("unexpected log output: %v", lines)
	}
}

func TestMiddleware_ErrorPropagates(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	var buf bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), nil, NewLoggerWithWriter("warn", &buf))

	want := errors.New("menu source down")
	_, err := mw.Wrap(func(ctx context.Context, op Operation) (bool, error) {
		return false, want
	})(context.Background(), Operation{Name: "resolve"})

	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if code := rec.Ended()[0].Status().Code; code != codes.Error {
		t.Errorf("status = %v, want Error", code)
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["level"] != "warn" || lines[0]["error"] != want.Error() {
		t.Errorf("unexpected log output: %v", lines)
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("err = %v, want ErrNilObserver", err)
	}
}

func TestOperation_Validate(t *testing.T) {
	if err := (Operation{}).Validate(); !errors.Is(err, ErrMissingOperation) {
		t.Errorf("empty operation: err = %v", err)
	}
	if err := (Operation{Name: "resolve"}).Validate(); err != nil {
		t.Errorf("named operation: err = %v", err)
	}
}
