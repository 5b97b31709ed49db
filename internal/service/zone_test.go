package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestZoneService - вспомогательная функция для создания инстанса сервиса с моками.
func newTestZoneService(t *testing.T) (*zoneService, *mocks.MockZoneRepository) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockZoneRepository(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewZoneService(repoMock, logger)
	return service.(*zoneService), repoMock
}

func TestCreateZone_Success(t *testing.T) {
	// Подготовка
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	zone := &models.Zone{Name: "Офис", Latitude: 55.75, Longitude: 37.61, RadiusMeters: 150}

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, z *models.Zone) error {
			// Симулируем, что БД присвоила ID
			assert.Equal(t, models.ZoneStatusActive, z.Status)
			z.ID = uuid.New()
			return nil
		}).Times(1)
	repoMock.EXPECT().InvalidateActiveZonesCache(ctx).Return(nil).Times(1)

	// Действие
	err := service.CreateZone(ctx, zone)

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, zone.ID)
	assert.Equal(t, models.ZoneStatusActive, zone.Status)
}

func TestCreateZone_RepositoryError(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()

	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("db down")).Times(1)
	repoMock.EXPECT().InvalidateActiveZonesCache(gomock.Any()).Times(0)

	err := service.CreateZone(ctx, &models.Zone{Name: "Склад"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "could not create zone")
}

func TestUpdateZone_Success(t *testing.T) {
	// Подготовка
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	zoneID := uuid.New()
	existing := &models.Zone{ID: zoneID, Name: "Старое имя", Status: models.ZoneStatusActive, RadiusMeters: 100}
	update := &models.Zone{
		ID:             zoneID,
		Name:           "Новое имя",
		RadiusMeters:   250,
		Status:         models.ZoneStatusInactive,
		AllowedMembers: []string{"u1"},
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, zoneID).Return(existing, nil).Times(1)
	repoMock.EXPECT().
		Update(ctx, gomock.Any()).
		Do(func(ctx context.Context, z *models.Zone) {
			assert.Equal(t, "Новое имя", z.Name)
			assert.Equal(t, 250.0, z.RadiusMeters)
			assert.Equal(t, models.ZoneStatusInactive, z.Status)
		}).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateActiveZonesCache(ctx).Return(nil).Times(1)

	// Действие
	err := service.UpdateZone(ctx, update)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, update.AllowedMembers)
}

func TestUpdateZone_NotFound(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	zoneID := uuid.New()

	repoMock.EXPECT().GetByID(ctx, zoneID).Return(nil, fmt.Errorf("zone %s: %w", zoneID, models.ErrNotFound)).Times(1)

	err := service.UpdateZone(ctx, &models.Zone{ID: zoneID})

	require.Error(t, err)
	assert.ErrorContains(t, err, "not found for update")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeactivateZone_Success(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	zoneID := uuid.New()

	repoMock.EXPECT().GetByID(ctx, zoneID).Return(&models.Zone{ID: zoneID}, nil).Times(1)
	repoMock.EXPECT().Delete(ctx, zoneID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateActiveZonesCache(ctx).Return(nil).Times(1)

	err := service.DeactivateZone(ctx, zoneID)

	require.NoError(t, err)
}

func TestDeactivateZone_CacheErrorIsNotFatal(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	zoneID := uuid.New()

	repoMock.EXPECT().GetByID(ctx, zoneID).Return(&models.Zone{ID: zoneID}, nil).Times(1)
	repoMock.EXPECT().Delete(ctx, zoneID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateActiveZonesCache(ctx).Return(fmt.Errorf("redis down")).Times(1)

	err := service.DeactivateZone(ctx, zoneID)

	require.NoError(t, err)
}

func TestListZones_NormalizesPagination(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	expected := []*models.Zone{{ID: uuid.New(), Name: "Зона 1"}}

	repoMock.EXPECT().ListZones(ctx, 1, 20).Return(expected, nil).Times(1)

	zones, err := service.ListZones(ctx, 0, 1000)

	require.NoError(t, err)
	assert.Equal(t, expected, zones)
}

func TestListActiveZones_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	cached := []*models.Zone{{ID: uuid.New(), Name: "Из кеша"}}

	// Ожидания
	repoMock.EXPECT().GetActiveZonesFromCache(ctx).Return(cached, nil).Times(1)
	repoMock.EXPECT().ListActive(gomock.Any()).Times(0)

	// Действие
	zones, err := service.ListActiveZones(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, cached, zones)
}

func TestListActiveZones_FromDB(t *testing.T) {
	// Подготовка
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	fromDB := []*models.Zone{{ID: uuid.New(), Name: "Из БД"}}

	// Ожидания
	// 1. Промах кеша
	repoMock.EXPECT().GetActiveZonesFromCache(ctx).Return(nil, nil).Times(1)
	// 2. Чтение из БД
	repoMock.EXPECT().ListActive(ctx).Return(fromDB, nil).Times(1)
	// 3. Запись в кеш
	repoMock.EXPECT().SetActiveZonesCache(ctx, fromDB).Return(nil).Times(1)

	// Действие
	zones, err := service.ListActiveZones(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, fromDB, zones)
}

func TestListActiveZones_CacheErrorFallsBackToDB(t *testing.T) {
	service, repoMock := newTestZoneService(t)
	ctx := context.Background()
	fromDB := []*models.Zone{}

	repoMock.EXPECT().GetActiveZonesFromCache(ctx).Return(nil, fmt.Errorf("redis down")).Times(1)
	repoMock.EXPECT().ListActive(ctx).Return(fromDB, nil).Times(1)
	repoMock.EXPECT().SetActiveZonesCache(ctx, fromDB).Return(fmt.Errorf("redis down")).Times(1)

	zones, err := service.ListActiveZones(ctx)

	require.NoError(t, err)
	assert.Empty(t, zones)
}
