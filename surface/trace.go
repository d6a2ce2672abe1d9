package surface

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/pag-surface/engine"
	"github.com/wippyai/pag-surface/target"
)

const instrumentationName = "github.com/wippyai/pag-surface/surface"

// Span attribute keys.
const (
	AttrKind   = attribute.Key("pag.surface.kind")
	AttrHandle = attribute.Key("pag.surface.handle")
	AttrWidth  = attribute.Key("pag.surface.width")
	AttrHeight = attribute.Key("pag.surface.height")
)

var (
	tracerProvider   trace.TracerProvider
	tracerProviderMu sync.RWMutex
)

// SetTracerProvider sets the provider surface spans are recorded with.
// Passing nil restores the global otel provider.
func SetTracerProvider(tp trace.TracerProvider) {
	tracerProviderMu.Lock()
	tracerProvider = tp
	tracerProviderMu.Unlock()
}

func tracer() trace.Tracer {
	tracerProviderMu.RLock()
	tp := tracerProvider
	tracerProviderMu.RUnlock()
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

func startSpan(ctx context.Context, op string, kind target.Kind, h engine.Handle) (context.Context, trace.Span) {
	return tracer().Start(ctx, "surface."+op, trace.WithAttributes(
		AttrKind.String(kind.String()),
		AttrHandle.Int64(int64(h)),
	))
}

// recordSize sets a pixel extent attribute on the span carried by ctx.
func recordSize(ctx context.Context, key attribute.Key, v int32) {
	trace.SpanFromContext(ctx).SetAttributes(key.Int64(int64(v)))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
