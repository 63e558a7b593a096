// internal/logging/context.go
package logging

import (
	"context"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/contextkeys"
	"go.uber.org/zap"
)

// GetLoggingFieldsFromContext extrae los campos de logging (trace_id, surface_id, order_id)
// del contexto y los devuelve como un slice de zap.Field.
func GetLoggingFieldsFromContext(ctx context.Context) []zap.Field {
	fields := []zap.Field{}
	if ctx == nil {
		return fields
	}
	if tid, ok := ctx.Value(contextkeys.TraceIDKey).(string); ok && tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if sid, ok := ctx.Value(contextkeys.SurfaceIDKey).(string); ok && sid != "" {
		fields = append(fields, zap.String("surface_id", sid))
	}
	if oid, ok := ctx.Value(contextkeys.OrderIDKey).(string); ok && oid != "" {
		fields = append(fields, zap.String("order_id", oid))
	}
	return fields
}

// WithTraceID añade el trace id al contexto si está presente.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.TraceIDKey, traceID)
}

// WithLoggingFields añade surface_id y order_id al contexto si están presentes.
func WithLoggingFields(ctx context.Context, surfaceID, orderID string) context.Context {
	if surfaceID != "" {
		ctx = context.WithValue(ctx, contextkeys.SurfaceIDKey, surfaceID)
	}
	if orderID != "" {
		ctx = context.WithValue(ctx, contextkeys.OrderIDKey, orderID)
	}
	return ctx
}

// FromContext devuelve el logger global enriquecido con los campos del contexto.
func FromContext(ctx context.Context) *zap.Logger {
	return zap.L().With(GetLoggingFieldsFromContext(ctx)...)
}
