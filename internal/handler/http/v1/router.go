package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	adminAuth := APIKeyAuthMiddleware(h.cfg, h.logger)
	userAuth := UserAuthMiddleware(h.cfg, h.logger)

	// Маршруты для управления геозонами (CRUD)
	zones := api.Group("/zones")
	{
		zones.GET("/active", userAuth, h.listActiveZones)
		zones.POST("", adminAuth, h.createZone)
		zones.GET("", adminAuth, h.listZones)
		zones.GET("/:id", adminAuth, h.getZone)
		zones.PUT("/:id", adminAuth, h.updateZone)
		zones.DELETE("/:id", adminAuth, h.deleteZone)
	}

	attendance := api.Group("/attendance")
	{
		attendance.POST("/events", userAuth, h.submitEvent)
		attendance.GET("/stats", adminAuth, h.getStats)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
