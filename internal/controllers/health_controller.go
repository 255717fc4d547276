package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger checks a backing service.
type Pinger func(ctx context.Context) error

// Gauge reports a current count, such as connected feed clients.
type Gauge func() int

// Health reports 200 when every pinger answers within two seconds. Gauges are reported
// as-is and never fail the check.
func Health(pingers map[string]Pinger, gauges map[string]Gauge) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}
		for name, ping := range pingers {
			if err := ping(ctx); err != nil {
				logrus.WithError(err).WithField("check", name).Warn("Health check failed.")
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		stats := gin.H{}
		for name, read := range gauges {
			stats[name] = read()
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks, "stats": stats})
	}
}
