package local

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует маршруты loopback API агента
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/samples", h.submitSample)

	attendance := api.Group("/attendance")
	{
		attendance.POST("/check-in", h.checkIn)
		attendance.POST("/check-out", h.checkOut)
	}

	tracking := api.Group("/tracking")
	{
		tracking.GET("", h.trackingStatus)
		tracking.POST("/start", h.startTracking)
		tracking.POST("/stop", h.stopTracking)
	}

	outbox := api.Group("/outbox")
	{
		outbox.GET("", h.outboxStatus)
		outbox.GET("/dead-letters", h.deadLetters)
	}

	api.GET("/system/health", h.healthCheck)
}
