package middleware

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/logger"
)

// AccessLog logs every request through log and, when file is not nil,
// appends a combined-style line to it
func AccessLog(log *logger.Logger, file io.Writer) gin.HandlerFunc {
	log = log.WithComponent(logger.ComponentHTTP)

	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), log))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path

		args := []any{
			logger.FieldMethod, c.Request.Method,
			logger.FieldPath, path,
			logger.FieldStatusCode, status,
			logger.FieldDuration, latency.Milliseconds(),
			logger.FieldClientIP, c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, logger.FieldError, c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request", args...)
		case status >= 400:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}

		if file != nil {
			fmt.Fprintf(file, "%s - - [%s] \"%s %s %s\" %d %d \"%s\" \"%s\" %.3f ms\n",
				c.ClientIP(),
				start.Format("02/Jan/2006:15:04:05 -0700"),
				c.Request.Method,
				c.Request.URL.RequestURI(),
				c.Request.Proto,
				status,
				max(c.Writer.Size(), 0),
				c.Request.Referer(),
				c.Request.UserAgent(),
				float64(latency.Microseconds())/1000,
			)
		}
	}
}
