package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=zone.go -destination=mocks/mock_zone.go -package=mocks

// ZoneRepository определяет контракт для работы с бд геозон
type ZoneRepository interface {
	Create(ctx context.Context, zone *models.Zone) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	Update(ctx context.Context, zone *models.Zone) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListZones(ctx context.Context, page, pageSize int) ([]*models.Zone, error)
	ListActive(ctx context.Context) ([]*models.Zone, error)
	GetActiveZonesFromCache(ctx context.Context) ([]*models.Zone, error)
	SetActiveZonesCache(ctx context.Context, zones []*models.Zone) error
	InvalidateActiveZonesCache(ctx context.Context) error
}

// ZoneService определяет контракт бизнес-логики управления геозонами
type ZoneService interface {
	CreateZone(ctx context.Context, zone *models.Zone) error
	GetZone(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	UpdateZone(ctx context.Context, zone *models.Zone) error
	DeactivateZone(ctx context.Context, id uuid.UUID) error
	ListZones(ctx context.Context, page, pageSize int) ([]*models.Zone, error)
	ListActiveZones(ctx context.Context) ([]*models.Zone, error)
}

type zoneService struct {
	repo   ZoneRepository
	logger *logrus.Logger
}

func NewZoneService(repo ZoneRepository, logger *logrus.Logger) ZoneService {
	return &zoneService{
		repo:   repo,
		logger: logger,
	}
}

// CreateZone создает активную геозону
func (s *zoneService) CreateZone(ctx context.Context, zone *models.Zone) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "zone",
		"method":  "CreateZone",
		"name":    zone.Name,
	})
	log.Info("Attempting to create a new zone")

	zone.Status = models.ZoneStatusActive
	if err := s.repo.Create(ctx, zone); err != nil {
		log.WithError(err).Error("Failed to create zone in repository")
		return fmt.Errorf("service: could not create zone: %w", err)
	}

	s.invalidateActive(ctx, log)
	log.WithField("zone_id", zone.ID).Info("Zone created successfully")
	return nil
}

// GetZone получает геозону по ID
func (s *zoneService) GetZone(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "zone",
		"method":  "GetZone",
		"zone_id": id,
	})
	log.Debug("Fetching zone by ID")

	zone, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get zone from repository")
		return nil, fmt.Errorf("service: could not get zone: %w", err)
	}
	return zone, nil
}

// UpdateZone обновляет существующую геозону
func (s *zoneService) UpdateZone(ctx context.Context, zone *models.Zone) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "zone",
		"method":  "UpdateZone",
		"zone_id": zone.ID,
	})
	log.Info("Attempting to update zone")

	existing, err := s.repo.GetByID(ctx, zone.ID)
	if err != nil {
		log.WithError(err).Warn("Attempted to update a non-existent zone")
		return fmt.Errorf("service: zone with id %s not found for update: %w", zone.ID, err)
	}

	existing.Name = zone.Name
	existing.Latitude = zone.Latitude
	existing.Longitude = zone.Longitude
	existing.RadiusMeters = zone.RadiusMeters
	existing.Status = zone.Status
	existing.AllowedMembers = zone.AllowedMembers
	existing.WorkingHours = zone.WorkingHours
	existing.WorkingDays = zone.WorkingDays
	existing.Timezone = zone.Timezone

	if err := s.repo.Update(ctx, existing); err != nil {
		log.WithError(err).Error("Failed to update zone in repository")
		return fmt.Errorf("service: could not update zone: %w", err)
	}

	*zone = *existing
	s.invalidateActive(ctx, log)
	log.Info("Zone updated successfully")
	return nil
}

// DeactivateZone деактивирует геозону
func (s *zoneService) DeactivateZone(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "zone",
		"method":  "DeactivateZone",
		"zone_id": id,
	})
	log.Info("Attempting to deactivate zone")

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		log.WithError(err).Warn("Attempted to deactivate a non-existent zone")
		return fmt.Errorf("service: zone with id %s not found for deactivate: %w", id, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to deactivate zone in repository")
		return fmt.Errorf("service: could not deactivate zone: %w", err)
	}

	s.invalidateActive(ctx, log)
	log.Info("Zone deactivated successfully")
	return nil
}

// ListZones возвращает список геозон с пагинацией
func (s *zoneService) ListZones(ctx context.Context, page, pageSize int) ([]*models.Zone, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "zone",
		"method":    "ListZones",
		"page":      page,
		"page_size": pageSize,
	})

	zones, err := s.repo.ListZones(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list zones from repository")
		return nil, fmt.Errorf("service: could not list zones: %w", err)
	}

	log.WithField("count", len(zones)).Debug("Zones listed successfully")
	return zones, nil
}

// ListActiveZones возвращает снимок активных геозон, сначала из кеша
func (s *zoneService) ListActiveZones(ctx context.Context) ([]*models.Zone, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "zone",
		"method":  "ListActiveZones",
	})

	cached, err := s.repo.GetActiveZonesFromCache(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read active zones from cache")
	} else if cached != nil {
		return cached, nil
	}

	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list active zones from repository")
		return nil, fmt.Errorf("service: could not list active zones: %w", err)
	}

	if err := s.repo.SetActiveZonesCache(ctx, zones); err != nil {
		log.WithError(err).Warn("Failed to cache active zones")
	}

	log.WithField("count", len(zones)).Debug("Active zones loaded")
	return zones, nil
}

// invalidateActive сбрасывает кеш активных зон; ошибка не прерывает операцию
func (s *zoneService) invalidateActive(ctx context.Context, log *logrus.Entry) {
	if err := s.repo.InvalidateActiveZonesCache(ctx); err != nil {
		log.WithError(err).Warn("Failed to invalidate active zones cache")
	}
}
