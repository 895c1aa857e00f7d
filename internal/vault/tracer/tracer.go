// Package tracer is a thin facade over OpenTelemetry so the vault service can
// emit spans without depending on its APIs throughout the codebase.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for vault operations.
type Tracer struct {
	tracer trace.Tracer
}

// Option configures the Tracer.
type Option func(*Tracer)

// WithOTelTracer allows injecting a custom OpenTelemetry tracer.
// Useful for testing or when a pre-configured tracer is available.
func WithOTelTracer(t trace.Tracer) Option {
	return func(tr *Tracer) {
		tr.tracer = t
	}
}

// New creates a tracer. By default it uses the global tracer provider with
// "satsvault/vault" as the instrumentation name.
func New(opts ...Option) *Tracer {
	t := &Tracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer("satsvault/vault")
	}
	return t
}

// Span wraps an in-flight OpenTelemetry span.
type Span struct {
	span trace.Span
}

// Start creates a new span with the given name and string attributes.
// Attribute values must never contain payload plaintext.
func (t *Tracer) Start(ctx context.Context, name string, kv ...string) (context.Context, *Span) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// End completes the span, recording any error.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
