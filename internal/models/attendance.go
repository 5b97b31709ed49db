package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType - тип события посещаемости
type EventType string

const (
	EventLogin         EventType = "login"
	EventLogout        EventType = "logout"
	EventGeofenceEnter EventType = "geofence_enter"
	EventGeofenceExit  EventType = "geofence_exit"
)

// IsGeofence сообщает, порождено ли событие геозоной
func (t EventType) IsGeofence() bool {
	return t == EventGeofenceEnter || t == EventGeofenceExit
}

func (t EventType) Valid() bool {
	switch t {
	case EventLogin, EventLogout, EventGeofenceEnter, EventGeofenceExit:
		return true
	}
	return false
}

// manualOrderingKey - общий ключ упорядочивания для ручных отметок
const manualOrderingKey = "manual"

// LocationSample - сырой отсчет местоположения от источника на устройстве
type LocationSample struct {
	Coordinate
	ObservedAt time.Time `json:"observed_at"`
}

// AttendanceEvent - событие посещаемости, создаваемое детектором или вручную
type AttendanceEvent struct {
	LocalID          uuid.UUID  `json:"local_id"`
	Type             EventType  `json:"type"`
	Location         Coordinate `json:"location"`
	ZoneID           *uuid.UUID `json:"zone_id,omitempty"`
	ObservedAt       time.Time  `json:"observed_at"`
	DeliveryAttempts int        `json:"delivery_attempts"`
}

// Validate проверяет тип, координату и наличие зоны (только у geofence-событий)
func (e *AttendanceEvent) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if err := e.Location.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if e.Type.IsGeofence() && (e.ZoneID == nil || *e.ZoneID == uuid.Nil) {
		return fmt.Errorf("%w: %s requires zone_id", ErrInvalidEvent, e.Type)
	}
	if !e.Type.IsGeofence() && e.ZoneID != nil {
		return fmt.Errorf("%w: %s must not carry zone_id", ErrInvalidEvent, e.Type)
	}
	return nil
}

// OrderingKey возвращает ключ, внутри которого доставка строго FIFO
func (e *AttendanceEvent) OrderingKey() string {
	if e.ZoneID != nil {
		return e.ZoneID.String()
	}
	return manualOrderingKey
}

// AttendanceRecord - принятое сервером событие посещаемости
type AttendanceRecord struct {
	ID         int64      `json:"id"`
	LocalID    uuid.UUID  `json:"local_id"`
	UserID     string     `json:"user_id"`
	Type       EventType  `json:"type"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	ZoneID     *uuid.UUID `json:"zone_id,omitempty"`
	ObservedAt time.Time  `json:"observed_at"`
	ReceivedAt time.Time  `json:"received_at"`
}
