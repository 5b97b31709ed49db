package service

import (
	"errors"
	"fmt"

	"github.com/shenikar/geo_attendance_system/internal/models"
)

// Коды отказа политики зоны, возвращаются клиенту
const (
	CodeZoneNotFound        = "zone_not_found"
	CodeZoneInactive        = "zone_inactive"
	CodeUserNotAllowed      = "user_not_allowed"
	CodeOutsideZone         = "outside_zone"
	CodeOutsideWorkingHours = "outside_working_hours"
)

var (
	ErrZoneNotFound        = errors.New("zone not found")
	ErrZoneInactive        = errors.New("zone is inactive")
	ErrUserNotAllowed      = errors.New("user is not allowed in zone")
	ErrOutsideZone         = errors.New("claimed coordinates are outside the zone radius")
	ErrOutsideWorkingHours = errors.New("event is outside the zone working hours")
)

// PolicyError - окончательный отказ в приеме события по политике зоны
type PolicyError struct {
	Code string
	Err  error
}

func (e *PolicyError) Error() string {
	return e.Err.Error()
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// Terminal - повтор отклоненного события даст тот же результат
func (e *PolicyError) Terminal() bool {
	return true
}

// CheckZonePolicy заново выводит право на событие по данным зоны.
// Самооценка клиента (был ли он внутри) не используется.
// Для выхода радиус и рабочее время не проверяются: к моменту отчета устройство уже за границей.
func CheckZonePolicy(zone *models.Zone, userID string, event *models.AttendanceEvent) error {
	if zone == nil {
		return &PolicyError{Code: CodeZoneNotFound, Err: ErrZoneNotFound}
	}
	if !zone.IsActive() {
		return &PolicyError{Code: CodeZoneInactive, Err: ErrZoneInactive}
	}
	if !zone.AllowsMember(userID) {
		return &PolicyError{Code: CodeUserNotAllowed, Err: ErrUserNotAllowed}
	}
	if event.Type != models.EventGeofenceEnter {
		return nil
	}

	if !zone.Contains(event.Location) {
		return &PolicyError{Code: CodeOutsideZone, Err: ErrOutsideZone}
	}

	ok, err := zone.WithinWorkingTime(event.ObservedAt)
	if err != nil {
		return fmt.Errorf("zone %s has invalid schedule: %w", zone.ID, err)
	}
	if !ok {
		return &PolicyError{Code: CodeOutsideWorkingHours, Err: ErrOutsideWorkingHours}
	}
	return nil
}
