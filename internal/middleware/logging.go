package middleware

import (
	"time"

	"taskflow/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger records every completed request through the structured
// logger. It replaces gin's default logger so request logs share one format
// with the rest of the application.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.HTTPLog(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
