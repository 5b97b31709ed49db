package local

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/tracker"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_handler.go -package=mocks

// Tracker - операции трекера, доступные локальному API
type Tracker interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
	Submit(ctx context.Context, sample models.LocationSample) error
	CheckIn(ctx context.Context, location *models.Coordinate) (models.AttendanceEvent, error)
	CheckOut(ctx context.Context, location *models.Coordinate) (models.AttendanceEvent, error)
}

// Outbox - просмотр состояния очереди доставки
type Outbox interface {
	Pending(ctx context.Context) (int, error)
	DeadLetters(ctx context.Context) ([]models.DeadLetter, error)
}

// Handler - loopback API агента
type Handler struct {
	tracker  Tracker
	outbox   Outbox
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewHandler(tr Tracker, queue Outbox, logger *logrus.Logger) *Handler {
	return &Handler{
		tracker:  tr,
		outbox:   queue,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) submitSample(c *gin.Context) {
	var input SampleRequest
	log := h.logger.WithField("method", "submitSample")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	err := h.tracker.Submit(c.Request.Context(), toSample(input))
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, tracker.ErrTrackingStopped):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("Failed to submit sample")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "sample queue unavailable"})
	}
}

func (h *Handler) checkIn(c *gin.Context) {
	h.manualEvent(c, "checkIn", h.tracker.CheckIn)
}

func (h *Handler) checkOut(c *gin.Context) {
	h.manualEvent(c, "checkOut", h.tracker.CheckOut)
}

type manualFunc func(ctx context.Context, location *models.Coordinate) (models.AttendanceEvent, error)

func (h *Handler) manualEvent(c *gin.Context, method string, record manualFunc) {
	var input ManualEventRequest
	log := h.logger.WithField("method", method)

	// Пустое тело допустимо: берется последняя известная координата
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	event, err := record(c.Request.Context(), toLocation(input))
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, toEventResponse(event))
	case errors.Is(err, tracker.ErrNoLocation):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no known location, pass latitude and longitude"})
	case errors.Is(err, models.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("Failed to record manual event")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func (h *Handler) startTracking(c *gin.Context) {
	// Трекинг живет дольше запроса, останавливается через Stop
	h.tracker.Start(context.WithoutCancel(c.Request.Context()))
	c.JSON(http.StatusOK, TrackingResponse{Running: h.tracker.Running()})
}

func (h *Handler) stopTracking(c *gin.Context) {
	h.tracker.Stop()
	c.JSON(http.StatusOK, TrackingResponse{Running: h.tracker.Running()})
}

func (h *Handler) trackingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, TrackingResponse{Running: h.tracker.Running()})
}

func (h *Handler) outboxStatus(c *gin.Context) {
	pending, err := h.outbox.Pending(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("method", "outboxStatus").Error("Failed to count pending entries")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, OutboxResponse{Pending: pending})
}

func (h *Handler) deadLetters(c *gin.Context) {
	letters, err := h.outbox.DeadLetters(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("method", "deadLetters").Error("Failed to list dead letters")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if letters == nil {
		letters = []models.DeadLetter{}
	}
	c.JSON(http.StatusOK, letters)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
