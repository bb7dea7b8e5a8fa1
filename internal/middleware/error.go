package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-onboarding/internal/handler"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

// ErrorHandler renders the last error recorded by a handler. Server-side
// failures are logged with the full chain; clients only see the message.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		lastErr := c.Errors.Last().Err
		status, resp := handler.ErrorStatus(lastErr)

		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
		}
		if status >= 500 {
			log.Error(lastErr, "request failed", fields...)
		} else {
			log.Debug("request rejected", append(fields, "error", lastErr.Error())...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, resp)
	}
}
