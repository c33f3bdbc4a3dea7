package daemon

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestLogger logs every request once it has been served. Calibration
// endpoints block for seconds, so anything slower than slowRequest is
// logged at info instead of debug.
func requestLogger(logger logrus.FieldLogger, slowRequest time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// handlers may rewrite the path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency.Round(time.Millisecond),
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": max(c.Writer.Size(), 0),
		})

		if len(c.Errors) > 0 {
			entry.Error(strings.TrimSpace(c.Errors.ByType(gin.ErrorTypePrivate).String()))
			return
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error("request failed")
		case statusCode >= http.StatusBadRequest:
			entry.Warn("request rejected")
		case path == "/events":
			entry.Debug("event stream closed")
		case latency >= slowRequest:
			entry.Info("request served")
		default:
			entry.Debug("request served")
		}
	}
}
