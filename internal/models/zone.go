package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/pkg/geo"
)

const (
	ZoneStatusActive   = "active"
	ZoneStatusInactive = "inactive"

	MaxZoneRadiusMeters = 10000
)

// WorkingHours - окно рабочего времени в формате HH:MM в часовом поясе зоны
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Zone - круговая геозона с политикой членства и рабочего времени
type Zone struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	RadiusMeters   float64        `json:"radius_meters"`
	Status         string         `json:"status"`
	AllowedMembers []string       `json:"allowed_members,omitempty"`
	WorkingHours   *WorkingHours  `json:"working_hours,omitempty"`
	WorkingDays    []time.Weekday `json:"working_days,omitempty"`
	Timezone       string         `json:"timezone,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (z *Zone) IsActive() bool {
	return z.Status == ZoneStatusActive
}

// Center возвращает центр зоны
func (z *Zone) Center() geo.Point {
	return geo.Point{Lat: z.Latitude, Lon: z.Longitude}
}

// Contains сообщает, находится ли координата внутри радиуса зоны
func (z *Zone) Contains(c Coordinate) bool {
	return geo.IsInside(c.Point(), z.Center(), z.RadiusMeters)
}

// AllowsMember сообщает, разрешено ли пользователю отмечаться в зоне.
// Пустой список означает, что разрешено всем.
func (z *Zone) AllowsMember(userID string) bool {
	if len(z.AllowedMembers) == 0 {
		return true
	}
	return slices.Contains(z.AllowedMembers, userID)
}

// Location возвращает часовой пояс зоны, UTC по умолчанию
func (z *Zone) Location() (*time.Location, error) {
	if z.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(z.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidZone, z.Timezone, err)
	}
	return loc, nil
}

// WithinWorkingTime проверяет момент t по рабочим дням и часам зоны.
// Если ни дни, ни часы не заданы, ограничений нет.
// Окно с End < Start переходит через полночь.
func (z *Zone) WithinWorkingTime(t time.Time) (bool, error) {
	if z.WorkingHours == nil && len(z.WorkingDays) == 0 {
		return true, nil
	}
	loc, err := z.Location()
	if err != nil {
		return false, err
	}
	local := t.In(loc)

	if len(z.WorkingDays) > 0 && !slices.Contains(z.WorkingDays, local.Weekday()) {
		return false, nil
	}
	if z.WorkingHours == nil {
		return true, nil
	}

	start, err := parseClock(z.WorkingHours.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(z.WorkingHours.End)
	if err != nil {
		return false, err
	}
	minute := local.Hour()*60 + local.Minute()

	switch {
	case start == end:
		return true, nil
	case start < end:
		return minute >= start && minute < end, nil
	default:
		return minute >= start || minute < end, nil
	}
}

// parseClock переводит HH:MM в минуты от полуночи
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: working hours %q: %v", ErrInvalidZone, s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
