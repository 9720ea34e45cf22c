package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// KeyPrefixKey is the context key for the public prefix of the
	// authenticated API key.
	KeyPrefixKey contextKey = "key_prefix"

	// PlanKey is the context key for the plan tier of the authenticated key.
	PlanKey contextKey = "plan"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithKeyPrefix adds the authenticated key prefix to the context.
func WithKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, KeyPrefixKey, prefix)
}

// GetKeyPrefix retrieves the authenticated key prefix from the context.
func GetKeyPrefix(ctx context.Context) string {
	if prefix, ok := ctx.Value(KeyPrefixKey).(string); ok {
		return prefix
	}
	return ""
}

// WithPlan adds the plan tier to the context.
func WithPlan(ctx context.Context, plan string) context.Context {
	return context.WithValue(ctx, PlanKey, plan)
}

// GetPlan retrieves the plan tier from the context.
func GetPlan(ctx context.Context) string {
	if plan, ok := ctx.Value(PlanKey).(string); ok {
		return plan
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, slog.String("request_id", requestID))
	}
	if prefix := GetKeyPrefix(ctx); prefix != "" {
		fields = append(fields, slog.String("key_prefix", prefix))
	}
	if plan := GetPlan(ctx); plan != "" {
		fields = append(fields, slog.String("plan", plan))
	}

	return fields
}
