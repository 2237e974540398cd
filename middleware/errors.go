package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// the JSON envelope. Server errors are logged; their cause reaches the client
// only in debug mode.
func ErrorHandler(log *zap.Logger, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := apperrors.Envelope(err, debug)
		if status >= 500 {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(log *zap.Logger, debug bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		status, body := apperrors.Envelope(apperrors.Database("Internal server error", fmt.Errorf("panic: %v", recovered)), debug)
		c.AbortWithStatusJSON(status, body)
	})
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id, ok := auth.CurrentUserID(c); ok {
			fields = append(fields, zap.Uint("user_id", id))
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
