package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "requestID"
	loggerContextKey    = "logger"
)

// RequestLogger tags each request with an id and logs it on completion.
// The tagged logger is available to handlers through LoggerFromContext.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(requestIDContextKey, requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		c.Set(loggerContextKey, reqLogger)

		c.Next()

		evt := reqLogger.Info()
		if c.Writer.Status() >= 500 {
			evt = reqLogger.Error()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("request completed")
	}
}

func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// LoggerFromContext returns the request logger, or a no-op logger outside
// RequestLogger.
func LoggerFromContext(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return &l
		}
	}
	nop := zerolog.Nop()
	return &nop
}
