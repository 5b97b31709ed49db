package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
)

// DTOToZoneModel преобразует DTO создания в доменную модель
func DTOToZoneModel(dto CreateZoneRequest) *models.Zone {
	zone := &models.Zone{
		Name:           dto.Name,
		Latitude:       *dto.Latitude,
		Longitude:      *dto.Longitude,
		RadiusMeters:   dto.RadiusMeters,
		AllowedMembers: dto.AllowedMembers,
		Timezone:       dto.Timezone,
	}
	if dto.WorkingHours != nil {
		zone.WorkingHours = &models.WorkingHours{Start: dto.WorkingHours.Start, End: dto.WorkingHours.End}
	}
	for _, d := range dto.WorkingDays {
		zone.WorkingDays = append(zone.WorkingDays, time.Weekday(d))
	}
	return zone
}

// UpdateDTOToZoneModel преобразует DTO обновления в доменную модель
func UpdateDTOToZoneModel(id uuid.UUID, dto UpdateZoneRequest) *models.Zone {
	zone := DTOToZoneModel(dto.CreateZoneRequest)
	zone.ID = id
	zone.Status = dto.Status
	return zone
}

// ModelToZoneResponse преобразует доменную модель в DTO для ответа
func ModelToZoneResponse(model *models.Zone) *ZoneResponse {
	resp := &ZoneResponse{
		ID:             model.ID,
		Name:           model.Name,
		Latitude:       model.Latitude,
		Longitude:      model.Longitude,
		RadiusMeters:   model.RadiusMeters,
		Status:         model.Status,
		AllowedMembers: model.AllowedMembers,
		Timezone:       model.Timezone,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if resp.AllowedMembers == nil {
		resp.AllowedMembers = []string{}
	}
	if model.WorkingHours != nil {
		resp.WorkingHours = &WorkingHoursDTO{Start: model.WorkingHours.Start, End: model.WorkingHours.End}
	}
	for _, d := range model.WorkingDays {
		resp.WorkingDays = append(resp.WorkingDays, int(d))
	}
	return resp
}

// ModelsToZoneResponses преобразует слайс моделей в слайс DTO
func ModelsToZoneResponses(models []*models.Zone) []*ZoneResponse {
	responses := make([]*ZoneResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToZoneResponse(model)
	}
	return responses
}

// DTOToAttendanceEvent преобразует провалидированный DTO в событие
func DTOToAttendanceEvent(dto AttendanceEventRequest) *models.AttendanceEvent {
	event := &models.AttendanceEvent{
		LocalID: uuid.MustParse(dto.LocalID),
		Type:    dto.Type,
		Location: models.Coordinate{
			Latitude:  *dto.Latitude,
			Longitude: *dto.Longitude,
			Accuracy:  dto.Accuracy,
			Altitude:  dto.Altitude,
			Heading:   dto.Heading,
			Speed:     dto.Speed,
		},
		ObservedAt:       dto.ObservedAt,
		DeliveryAttempts: dto.DeliveryAttempts,
	}
	if dto.ZoneID != "" {
		zoneID := uuid.MustParse(dto.ZoneID)
		event.ZoneID = &zoneID
	}
	return event
}

// ModelToAttendanceResponse преобразует запись в DTO для ответа
func ModelToAttendanceResponse(record *models.AttendanceRecord, duplicate bool) *AttendanceRecordResponse {
	return &AttendanceRecordResponse{
		ID:         record.ID,
		LocalID:    record.LocalID,
		UserID:     record.UserID,
		Type:       record.Type,
		Latitude:   record.Latitude,
		Longitude:  record.Longitude,
		Accuracy:   record.Accuracy,
		ZoneID:     record.ZoneID,
		ObservedAt: record.ObservedAt,
		ReceivedAt: record.ReceivedAt,
		Duplicate:  duplicate,
	}
}
