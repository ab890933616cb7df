package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes one instrumented navigation call.
type Operation struct {
	Name     string // resolve, can_access, warm_up, invalidate, ...
	MenuID   string
	UserID   string
	TenantID string
	Role     string
}

// SpanName returns the span name for the operation: nav.<name>.
func (o Operation) SpanName() string {
	return "nav." + o.Name
}

// Validate reports whether the operation is usable for telemetry.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperation
	}
	return nil
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("nav.operation", o.Name)}
	if o.MenuID != "" {
		attrs = append(attrs, attribute.String("nav.menu_id", o.MenuID))
	}
	if o.TenantID != "" {
		attrs = append(attrs, attribute.String("nav.tenant_id", o.TenantID))
	}
	if o.Role != "" {
		attrs = append(attrs, attribute.String("nav.role", o.Role))
	}
	return attrs
}

// fields returns the log fields for the operation. The user id is logged but
// never used as a metric attribute.
func (o Operation) fields() []Field {
	fields := []Field{F("operation", o.Name)}
	if o.MenuID != "" {
		fields = append(fields, F("menu_id", o.MenuID))
	}
	if o.UserID != "" {
		fields = append(fields, F("user_id", o.UserID))
	}
	if o.TenantID != "" {
		fields = append(fields, F("tenant_id", o.TenantID))
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing for navigation operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan records hit and err on the span and ends it.
	EndSpan(span trace.Span, hit bool, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &otelTracer{tracer: t}
}

func (t *otelTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := op.attributes()
	if op.UserID != "" {
		attrs = append(attrs, attribute.String("enduser.id", op.UserID))
	}
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *otelTracer) EndSpan(span trace.Span, hit bool, err error) {
	span.SetAttributes(attribute.Bool("nav.cache_hit", hit))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
