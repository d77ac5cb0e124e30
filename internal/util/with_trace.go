package util

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithTrace returns a logger that carries the trace id of the span found in
// ctx, so log lines can be correlated with traces.
func WithTrace(ctx context.Context, l *zap.SugaredLogger) *zap.SugaredLogger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		l = l.With(zap.String("traceID", sc.TraceID().String()))
	}
	return l
}
