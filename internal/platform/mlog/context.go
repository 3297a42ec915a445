package mlog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type ambientContextKey string

const key = ambientContextKey("ambient_context")

type ambientContextValue struct {
	Logger        Logger
	Tracer        trace.Tracer
	CorrelationID string
}

// FromContext extracts the Logger attached to ctx, falling back to a
// no-op logger so callers never need to nil-check.
func FromContext(ctx context.Context) Logger {
	if v, ok := ctx.Value(key).(*ambientContextValue); ok && v.Logger != nil {
		return v.Logger
	}

	return &NoneLogger{}
}

// ContextWithLogger attaches a Logger to ctx.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	v, _ := ctx.Value(key).(*ambientContextValue)
	if v == nil {
		v = &ambientContextValue{}
	}

	v.Logger = logger

	return context.WithValue(ctx, key, v)
}

// TracerFromContext extracts the trace.Tracer attached to ctx, falling
// back to the default global tracer.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if v, ok := ctx.Value(key).(*ambientContextValue); ok && v.Tracer != nil {
		return v.Tracer
	}

	return otel.Tracer("default")
}

// ContextWithTracer attaches a trace.Tracer to ctx.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	v, _ := ctx.Value(key).(*ambientContextValue)
	if v == nil {
		v = &ambientContextValue{}
	}

	v.Tracer = tracer

	return context.WithValue(ctx, key, v)
}

// CorrelationIDFromContext returns the correlation id carried on ctx, or
// the empty string if none was set.
func CorrelationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(key).(*ambientContextValue); ok {
		return v.CorrelationID
	}

	return ""
}

// ContextWithCorrelationID attaches a correlation id to ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	v, _ := ctx.Value(key).(*ambientContextValue)
	if v == nil {
		v = &ambientContextValue{}
	}

	v.CorrelationID = id

	return context.WithValue(ctx, key, v)
}
