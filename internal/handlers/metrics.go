package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/passcount/internal/store"
)

// StatsSource reports store housekeeping counters.
type StatsSource interface {
	Stats() store.Stats
}

// RegisterMetricRoutes registers the housekeeping endpoint.
//
// GET /metrics
// - records: live negotiation records
// - sweeps / swept: sweeper runs and records removed so far
func RegisterMetricRoutes(r gin.IRoutes, src StatsSource) {
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.Stats())
	})
}
