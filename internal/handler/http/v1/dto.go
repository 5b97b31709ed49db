package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
)

// WorkingHoursDTO окно рабочего времени зоны
// @Description Окно рабочего времени в формате HH:MM
type WorkingHoursDTO struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

// CreateZoneRequest DTO для создания геозоны
// @Description DTO для создания геозоны
type CreateZoneRequest struct {
	Name           string           `json:"name" validate:"required,min=2,max=255"`
	Latitude       *float64         `json:"latitude" validate:"required,latitude"`
	Longitude      *float64         `json:"longitude" validate:"required,longitude"`
	RadiusMeters   float64          `json:"radius_meters" validate:"required,gt=0,lte=10000"`
	AllowedMembers []string         `json:"allowed_members,omitempty" validate:"omitempty,dive,required"`
	WorkingHours   *WorkingHoursDTO `json:"working_hours,omitempty"`
	WorkingDays    []int            `json:"working_days,omitempty" validate:"omitempty,unique,dive,min=0,max=6"`
	Timezone       string           `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// UpdateZoneRequest DTO для обновления геозоны
// @Description DTO для обновления геозоны
type UpdateZoneRequest struct {
	CreateZoneRequest
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// ZoneResponse DTO для ответа с информацией о геозоне
// @Description DTO для ответа с информацией о геозоне
type ZoneResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Latitude       float64          `json:"latitude"`
	Longitude      float64          `json:"longitude"`
	RadiusMeters   float64          `json:"radius_meters"`
	Status         string           `json:"status"`
	AllowedMembers []string         `json:"allowed_members"`
	WorkingHours   *WorkingHoursDTO `json:"working_hours,omitempty"`
	WorkingDays    []int            `json:"working_days,omitempty"`
	Timezone       string           `json:"timezone,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// AttendanceEventRequest DTO события посещаемости от агента
// @Description DTO события посещаемости от агента
type AttendanceEventRequest struct {
	LocalID          string           `json:"local_id" validate:"required,uuid"`
	Type             models.EventType `json:"type" validate:"required,oneof=login logout geofence_enter geofence_exit"`
	Latitude         *float64         `json:"latitude" validate:"required,latitude"`
	Longitude        *float64         `json:"longitude" validate:"required,longitude"`
	Accuracy         *float64         `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Altitude         *float64         `json:"altitude,omitempty"`
	Heading          *float64         `json:"heading,omitempty"`
	Speed            *float64         `json:"speed,omitempty"`
	ZoneID           string           `json:"zone_id,omitempty" validate:"omitempty,uuid"`
	ObservedAt       time.Time        `json:"observed_at" validate:"required"`
	DeliveryAttempts int              `json:"delivery_attempts,omitempty" validate:"gte=0"`
}

// AttendanceRecordResponse DTO принятого события
// @Description DTO принятого события
type AttendanceRecordResponse struct {
	ID         int64            `json:"id"`
	LocalID    uuid.UUID        `json:"local_id"`
	UserID     string           `json:"user_id"`
	Type       models.EventType `json:"type"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	Accuracy   *float64         `json:"accuracy,omitempty"`
	ZoneID     *uuid.UUID       `json:"zone_id,omitempty"`
	ObservedAt time.Time        `json:"observed_at"`
	ReceivedAt time.Time        `json:"received_at"`
	Duplicate  bool             `json:"duplicate"`
}

// ErrorResponse DTO ошибки
// @Description DTO ошибки; code заполняется при отказе политики зоны
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	UserCount     int `json:"user_count"`
	WindowMinutes int `json:"window_minutes"`
}
