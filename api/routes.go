package api

import (
	"github.com/gin-gonic/gin"

	"expansion-evaluator/internal/types"
)

// SetupRouter creates the gin engine with middleware and routes
func SetupRouter(config *types.Config, handler *Handler) *gin.Engine {
	if config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(CORSMiddleware(config.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/extract", handler.Extract)
		v1.POST("/evaluate", handler.Evaluate)
		v1.GET("/background/status", handler.BackgroundStatus)
	}

	return router
}
