package api

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"geminigate/internal/logging"
	"geminigate/internal/metrics"
)

// NewRouter builds the engine with the global middleware stack and all routes.
// /metrics is only mounted when exposeMetrics is set.
func NewRouter(h *Handler, logger *slog.Logger, m *metrics.Metrics, exposeMetrics bool) *gin.Engine {
	router := gin.New()
	router.Use(logging.Recovery(logger), logging.Middleware(logger), cors.Default())
	if m != nil {
		router.Use(m.Middleware())
		if exposeMetrics {
			router.GET("/metrics", gin.WrapH(m.Handler()))
		}
	}
	h.RegisterRoutes(router)
	return router
}
