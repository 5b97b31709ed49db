package local

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
)

// SampleRequest - отсчет местоположения от источника на устройстве
type SampleRequest struct {
	Latitude   *float64   `json:"latitude" validate:"required,latitude"`
	Longitude  *float64   `json:"longitude" validate:"required,longitude"`
	Accuracy   *float64   `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Altitude   *float64   `json:"altitude,omitempty"`
	Heading    *float64   `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Speed      *float64   `json:"speed,omitempty" validate:"omitempty,gte=0"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// ManualEventRequest - ручная отметка. Координата необязательна, обе части задаются вместе.
type ManualEventRequest struct {
	Latitude  *float64 `json:"latitude,omitempty" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"required_with=Latitude,omitempty,longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
}

type EventResponse struct {
	LocalID    uuid.UUID        `json:"local_id"`
	Type       models.EventType `json:"type"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	ObservedAt time.Time        `json:"observed_at"`
}

type TrackingResponse struct {
	Running bool `json:"running"`
}

type OutboxResponse struct {
	Pending int `json:"pending"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toSample(req SampleRequest) models.LocationSample {
	sample := models.LocationSample{
		Coordinate: models.Coordinate{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Accuracy:  req.Accuracy,
			Altitude:  req.Altitude,
			Heading:   req.Heading,
			Speed:     req.Speed,
		},
	}
	if req.ObservedAt != nil {
		sample.ObservedAt = req.ObservedAt.UTC()
	}
	return sample
}

// toLocation возвращает nil, если координата не передана
func toLocation(req ManualEventRequest) *models.Coordinate {
	if req.Latitude == nil {
		return nil
	}
	return &models.Coordinate{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
	}
}

func toEventResponse(event models.AttendanceEvent) EventResponse {
	return EventResponse{
		LocalID:    event.LocalID,
		Type:       event.Type,
		Latitude:   event.Location.Latitude,
		Longitude:  event.Location.Longitude,
		ObservedAt: event.ObservedAt,
	}
}
