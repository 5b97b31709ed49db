package models

import (
	"fmt"

	"github.com/shenikar/geo_attendance_system/pkg/geo"
)

// Coordinate - неизменяемая географическая точка с необязательными метаданными устройства
type Coordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// Point возвращает координату в виде geo.Point
func (c Coordinate) Point() geo.Point {
	return geo.Point{Lat: c.Latitude, Lon: c.Longitude}
}

// Validate проверяет границы широты/долготы и неотрицательность точности
func (c Coordinate) Validate() error {
	if !geo.ValidLatLon(c.Latitude, c.Longitude) {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	if c.Accuracy != nil && *c.Accuracy < 0 {
		return fmt.Errorf("%w: negative accuracy %v", ErrInvalidCoordinate, *c.Accuracy)
	}
	return nil
}
