package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/component"
)

// Liveness confirms the process is able to serve HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName})
	}
}

// Readiness reports whether every component is able to take traffic.
// Degraded components still accept requests.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil && component.Overall(checker(c.Request.Context())) == component.StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}
