package utils

import (
	"time"

	"Scorekeep/utils/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger logs method, path, status and latency of each request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client", c.ClientIP(),
		}
		switch {
		case status >= 500:
			zap.S().Errorw("[HTTP] request failed", fields...)
		case status >= 400:
			zap.S().Warnw("[HTTP] request rejected", fields...)
		default:
			zap.S().Infow("[HTTP] request", fields...)
		}
	}
}

// ErrorHandler answers errors attached with c.Error when the handler did
// not write a response itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		zap.S().Errorf("[HTTP-ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		if !c.Writer.Written() {
			c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
		}
	}
}

// RespondError writes the status and message that match err.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		zap.S().Errorf("[HTTP-ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
