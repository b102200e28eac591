package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

const (
	internalErrorCode    = "INTERNAL_SERVER_ERROR"
	internalErrorMessage = "An internal server error occurred"
)

// Recovery turns a handler panic into a 500 in the API error envelope. gin's
// own recovery runs underneath and handles broken client connections, which
// get no response body.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		correlationID := GetCorrelationID(c)

		logger.Error("Panic recovered",
			"error", recovered,
			"stack", string(debug.Stack()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"correlation_id", correlationID,
		)

		body := gin.H{
			"error": gin.H{
				"code":    internalErrorCode,
				"message": internalErrorMessage,
			},
		}
		if correlationID != "" {
			body["correlation_id"] = correlationID
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
