package registry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks

// ZoneFetcher загружает активные геозоны с сервера
type ZoneFetcher interface {
	FetchActiveZones(ctx context.Context) ([]*models.Zone, error)
}

// zoneBounds - правила приема геозоны в снимок
type zoneBounds struct {
	ID           uuid.UUID `validate:"required"`
	Latitude     float64   `validate:"latitude"`
	Longitude    float64   `validate:"longitude"`
	RadiusMeters float64   `validate:"gt=0,lte=10000"`
}

// Registry хранит снимок геозон, доступных текущему пользователю.
// Снимок заменяется целиком, читатели никогда не видят смесь старого и нового.
type Registry struct {
	fetcher  ZoneFetcher
	userID   string
	logger   *logrus.Logger
	validate *validator.Validate
	snapshot atomic.Pointer[[]models.Zone]
}

func New(fetcher ZoneFetcher, userID string, logger *logrus.Logger) *Registry {
	r := &Registry{
		fetcher:  fetcher,
		userID:   userID,
		logger:   logger,
		validate: validator.New(),
	}
	empty := make([]models.Zone, 0)
	r.snapshot.Store(&empty)
	return r
}

// Refresh загружает геозоны и атомарно заменяет снимок.
// При ошибке загрузки остается прежний снимок.
func (r *Registry) Refresh(ctx context.Context) error {
	fetched, err := r.fetcher.FetchActiveZones(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Zone refresh failed, keeping previous snapshot")
		return fmt.Errorf("registry: could not fetch zones: %w", err)
	}

	zones := make([]models.Zone, 0, len(fetched))
	for _, z := range fetched {
		if z == nil {
			continue
		}
		log := r.logger.WithFields(logrus.Fields{"zone_id": z.ID, "zone_name": z.Name})

		if err := r.validate.Struct(zoneBounds{
			ID:           z.ID,
			Latitude:     z.Latitude,
			Longitude:    z.Longitude,
			RadiusMeters: z.RadiusMeters,
		}); err != nil {
			log.WithError(err).Warn("Dropping zone with invalid geometry")
			continue
		}
		if !z.IsActive() {
			log.Debug("Dropping inactive zone")
			continue
		}
		if r.userID != "" && !z.AllowsMember(r.userID) {
			log.Debug("Dropping zone not open to current user")
			continue
		}
		zones = append(zones, *z)
	}

	r.snapshot.Store(&zones)
	r.logger.WithField("count", len(zones)).Info("Zone snapshot refreshed")
	return nil
}

// CurrentZones возвращает копию последнего снимка
func (r *Registry) CurrentZones() []models.Zone {
	current := *r.snapshot.Load()
	out := make([]models.Zone, len(current))
	copy(out, current)
	return out
}

// Run обновляет снимок с интервалом до отмены контекста
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping zone registry refresh")
			return
		case <-ticker.C:
			// Ошибка уже залогирована, снимок остался прежним
			_ = r.Refresh(ctx)
		}
	}
}
