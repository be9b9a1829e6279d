package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyModality  contextKey = "modality"
)

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithModality records which endpoint family (text, image, document, audio)
// is serving the request.
func WithModality(ctx context.Context, modality string) context.Context {
	return context.WithValue(ctx, keyModality, modality)
}

// Modality extracts the modality from context.
func Modality(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyModality).(string)
	return v, ok && v != ""
}
