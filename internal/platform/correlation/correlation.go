// Package correlation carries a request correlation ID through a context.Context
// so it survives past the HTTP layer.
package correlation

import "context"

// Header names carrying the ID across process boundaries.
const (
	HTTPHeader  = "X-Correlation-ID"
	KafkaHeader = "correlation-id"
)

type correlationKey struct{}

// WithID returns a copy of ctx carrying correlationID. Empty IDs are ignored.
func WithID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// FromContext returns the correlation ID stored on ctx, if any
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
