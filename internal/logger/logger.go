package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// Init configures the global logrus logger.
func Init(level string) {
	log.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyTime: "@timestamp",
			log.FieldKeyMsg:  "message",
		},
	})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithError(err).Warnf("unknown log level %q, falling back to info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// RequestLogger logs every finished request. Responses with status >= 400 are logged as warnings.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"uri":        c.Request.RequestURI,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if userID, ok := c.Get("userID"); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		if c.Writer.Status() >= 400 {
			entry.Warn("api request")
		} else {
			entry.Info("api request")
		}
	}
}
