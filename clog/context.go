package clog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type requestIDKey struct{}

// RequestIDKey 是 request_id 在 Context 中的键
var RequestIDKey = requestIDKey{}

// ContextWithRequestID 将 request_id 写入 Context
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFromContext 读取 Context 中的 request_id
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func extractContextFields(ctx context.Context, opts *options) []slog.Attr {
	if opts == nil || (len(opts.contextFields) == 0 && !opts.traceContext) {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(opts.contextFields)+2)
	for _, cf := range opts.contextFields {
		if v := ctx.Value(cf.Key); v != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, v))
		}
	}

	if opts.traceContext {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return attrs
}
