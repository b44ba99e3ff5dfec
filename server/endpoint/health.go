package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/tuplestream/observability"
)

// Health returns a handler that reports service health including component
// statuses. A component that is down turns the response into a 503.
func Health(service, version string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.CheckAll(c.Request.Context(), service, version, checkers...)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}

// Liveness confirms the process is alive and able to serve HTTP.
func Liveness(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"service":   service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Readiness reports whether every component can take traffic.
func Readiness(service string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ready"
		httpStatus := http.StatusOK
		for _, hc := range checkers {
			if hc.CheckHealth(c.Request.Context()).Status == observability.HealthStatusDown {
				status = "not_ready"
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
