package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	zoneService       service.ZoneService
	attendanceService service.AttendanceService
	logger            *logrus.Logger
	validate          *validator.Validate
	cfg               *config.Config
}

func NewHandler(zoneService service.ZoneService, attendanceService service.AttendanceService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		zoneService:       zoneService,
		attendanceService: attendanceService,
		logger:            logger,
		validate:          validator.New(),
		cfg:               cfg,
	}
}

// @Summary Create a new zone
// @Description Create a new circular attendance zone. Requires API key.
// @Tags Zones
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param zone body CreateZoneRequest true "Zone creation request"
// @Success 201 {object} ZoneResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones [post]
func (h *Handler) createZone(c *gin.Context) {
	var input CreateZoneRequest
	log := h.logger.WithField("method", "createZone")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToZoneModel(input)
	if err := h.zoneService.CreateZone(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create zone in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, ModelToZoneResponse(model))
}

// @Summary Get a list of zones
// @Description Get a paginated list of all zones. Requires API key.
// @Tags Zones
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} ZoneResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones [get]
func (h *Handler) listZones(c *gin.Context) {
	log := h.logger.WithField("method", "listZones")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	zones, err := h.zoneService.ListZones(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list zones from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToZoneResponses(zones))
}

// @Summary Get active zones
// @Description Get the active zone set for the agent registry. Requires agent token.
// @Tags Zones
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ZoneResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones/active [get]
func (h *Handler) listActiveZones(c *gin.Context) {
	log := h.logger.WithField("method", "listActiveZones").WithField("user_id", c.GetString(userIDKey))

	zones, err := h.zoneService.ListActiveZones(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list active zones from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToZoneResponses(zones))
}

// @Summary Get zone by ID
// @Description Get a single zone by its ID. Requires API key.
// @Tags Zones
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Zone ID"
// @Success 200 {object} ZoneResponse
// @Failure 400 {object} ErrorResponse "Invalid zone ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Zone not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones/{id} [get]
func (h *Handler) getZone(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone ID"})
		return
	}
	log := h.logger.WithField("method", "getZone").WithField("id", id)

	zone, err := h.zoneService.GetZone(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get zone from service")
		h.zoneError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToZoneResponse(zone))
}

// @Summary Update an existing zone
// @Description Update an existing zone by ID. Requires API key.
// @Tags Zones
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Zone ID"
// @Param zone body UpdateZoneRequest true "Zone update request"
// @Success 200 {object} ZoneResponse
// @Failure 400 {object} ErrorResponse "Invalid zone ID or request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Zone not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones/{id} [put]
func (h *Handler) updateZone(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone ID"})
		return
	}
	log := h.logger.WithField("method", "updateZone").WithField("id", id)

	var input UpdateZoneRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := UpdateDTOToZoneModel(id, input)
	if err := h.zoneService.UpdateZone(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to update zone in service")
		h.zoneError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToZoneResponse(model))
}

// @Summary Deactivate a zone
// @Description Deactivate a zone by its ID. Agents drop it on the next registry refresh. Requires API key.
// @Tags Zones
// @Security ApiKeyAuth
// @Param id path string true "Zone ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse "Invalid zone ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Zone not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /zones/{id} [delete]
func (h *Handler) deleteZone(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone ID"})
		return
	}
	log := h.logger.WithField("method", "deleteZone").WithField("id", id)

	if err := h.zoneService.DeactivateZone(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("Failed to deactivate zone in service")
		h.zoneError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) zoneError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// @Summary Submit an attendance event
// @Description Accept an attendance event from an agent. Re-submitting a known local_id returns the stored record with 200. Requires agent token.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body AttendanceEventRequest true "Attendance event"
// @Success 201 {object} AttendanceRecordResponse "Recorded"
// @Success 200 {object} AttendanceRecordResponse "Already recorded"
// @Failure 400 {object} ErrorResponse "Malformed event"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "local_id already used by another user"
// @Failure 422 {object} ErrorResponse "Rejected by zone policy"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /attendance/events [post]
func (h *Handler) submitEvent(c *gin.Context) {
	userID := c.GetString(userIDKey)
	log := h.logger.WithField("method", "submitEvent").WithField("user_id", userID)

	var input AttendanceEventRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, created, err := h.attendanceService.SubmitEvent(c.Request.Context(), userID, DTOToAttendanceEvent(input))
	if err != nil {
		var policyErr *service.PolicyError
		switch {
		case errors.Is(err, service.ErrLocalIDConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: service.CodeLocalIDConflict})
		case errors.As(err, &policyErr):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: policyErr.Error(), Code: policyErr.Code})
		case errors.Is(err, models.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			log.WithError(err).Error("Failed to submit event in service")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, ModelToAttendanceResponse(record, !created))
}

// @Summary Get attendance statistics
// @Description Get the count of distinct users with accepted events in the stats window. Requires API key.
// @Tags Attendance
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /attendance/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	userCount, err := h.attendanceService.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{UserCount: userCount, WindowMinutes: h.cfg.StatsTimeWindowMinutes})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
