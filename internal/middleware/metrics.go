package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/service"
)

// Metrics records one duration observation per request, labelled by method,
// route template and status. A nil service disables collection.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// Prefer the route template so /schedules/:id does not explode
		// label cardinality.
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
