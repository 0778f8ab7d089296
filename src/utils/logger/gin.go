package logger

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger for the request
func LOG(c *gin.Context) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"module": "ambassador.api",
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
}

// Logs error and aborts the request with the status
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
	return LOG(c).WithError(err).WithField("status", status)
}

// Gin middleware logging every finished request
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		LOG(c).WithField("status", c.Writer.Status()).Trace("Request handled")
	}
}
