package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/config"
	"github.com/PratikDhanave/passcount/internal/handlers"
	"github.com/PratikDhanave/passcount/internal/signaling"
	"github.com/PratikDhanave/passcount/internal/store"
)

// NewRouter wires the public endpoints.
// Health: /health, /ready
// Rendezvous: POST /api/signaling
// Housekeeping: /metrics
func NewRouter(st *store.MemoryStore, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Named("http")))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the store still accepts writes.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterSignalingRoutes(r, signaling.NewHandler(st), logger.Named("signaling"))
	handlers.RegisterMetricRoutes(r, st)

	return r
}

// NewHandler wraps the router with CORS so browser agents served from other
// origins can reach the signaling endpoint.
func NewHandler(cfg config.Config, st *store.MemoryStore, logger *zap.Logger) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	return c.Handler(NewRouter(st, logger))
}
