package middleware

import (
	"strings"

	"github.com/alx-travel-payments/internal/platform/correlation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is echoed on every response
	CorrelationIDHeader = correlation.HTTPHeader

	// CorrelationIDKey is the key used to store correlation ID in the gin context
	CorrelationIDKey = "correlation_id"

	// Accepted when the caller (usually a proxy) sets no correlation header.
	requestIDHeader = "X-Request-ID"

	maxCorrelationIDLength = 128
)

// CorrelationID ensures each request carries an identifier. The ID is stored
// on the gin context and on the request context, so services and the
// notification dispatcher see the same value.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := incomingCorrelationID(c)

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(correlation.WithID(c.Request.Context(), correlationID))

		c.Next()
	}
}

// incomingCorrelationID returns the caller's ID when it is usable and a fresh
// UUID otherwise. Chapa callbacks arrive without one.
func incomingCorrelationID(c *gin.Context) string {
	for _, header := range []string{CorrelationIDHeader, requestIDHeader} {
		if id := strings.TrimSpace(c.GetHeader(header)); isUsableCorrelationID(id) {
			return id
		}
	}
	return uuid.NewString()
}

// isUsableCorrelationID accepts short printable ASCII only, so a client
// cannot split log lines or inflate every record it touches.
func isUsableCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetCorrelationID returns the request's correlation ID, or "" before the
// CorrelationID middleware has run.
func GetCorrelationID(c *gin.Context) string {
	if id, ok := c.Get(CorrelationIDKey); ok {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
		return ""
	}
	if c.Request != nil {
		return correlation.FromContext(c.Request.Context())
	}
	return ""
}
