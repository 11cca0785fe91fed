package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api/v1. The refresh trigger is only
// exposed in debug mode.
func RegisterRoutes(r *gin.Engine, health *HealthHandler, popular *PopularTimesHandler, debug bool) {
	api := r.Group("/api/v1")

	api.GET("/health", health.HealthCheck)
	api.GET("/cafes/:id/popular-times", popular.GetCafePopularTimes)
	api.GET("/popular-times/export", popular.ExportPopularTimes)
	api.GET("/popular-times/last-run", popular.GetLastRun)

	if debug {
		api.POST("/refresh/popular-times", popular.Refresh)
	}
}
