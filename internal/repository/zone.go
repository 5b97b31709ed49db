package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/service"
)

const activeZonesCacheKey = "zones:active"

const zoneColumns = `
	id,
	name,
	latitude,
	longitude,
	radius_meters,
	status,
	allowed_members,
	work_start,
	work_end,
	working_days,
	timezone,
	created_at,
	updated_at`

type ZoneRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewZoneRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.ZoneRepository {
	return &ZoneRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// Create создает новую геозону в бд
func (r *ZoneRepository) Create(ctx context.Context, zone *models.Zone) error {
	start, end := splitWorkingHours(zone.WorkingHours)
	query := `
		INSERT INTO zones (name, latitude, longitude, radius_meters, status, allowed_members, work_start, work_end, working_days, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		zone.Name,
		zone.Latitude,
		zone.Longitude,
		zone.RadiusMeters,
		zone.Status,
		members(zone.AllowedMembers),
		start,
		end,
		weekdaysToInts(zone.WorkingDays),
		timezoneOrUTC(zone.Timezone),
	).Scan(&zone.ID, &zone.CreatedAt, &zone.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}
	return nil
}

// GetByID возвращает геозону по UUID
func (r *ZoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	query := `SELECT` + zoneColumns + ` FROM zones WHERE id = $1;`

	zone, err := scanZone(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("zone with id %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get zone by id: %w", err)
	}
	return zone, nil
}

func (r *ZoneRepository) Update(ctx context.Context, zone *models.Zone) error {
	start, end := splitWorkingHours(zone.WorkingHours)
	query := `
		UPDATE zones SET
			name = $1,
			latitude = $2,
			longitude = $3,
			radius_meters = $4,
			status = $5,
			allowed_members = $6,
			work_start = $7,
			work_end = $8,
			working_days = $9,
			timezone = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		zone.Name,
		zone.Latitude,
		zone.Longitude,
		zone.RadiusMeters,
		zone.Status,
		members(zone.AllowedMembers),
		start,
		end,
		weekdaysToInts(zone.WorkingDays),
		timezoneOrUTC(zone.Timezone),
		zone.ID,
	).Scan(&zone.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("zone with id %s for update: %w", zone.ID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to update zone: %w", err)
	}
	return nil
}

// Delete(деактивация) устанавливает статус 'inactive' для геозоны
func (r *ZoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE zones SET
			status = 'inactive',
			updated_at = NOW()
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate zone: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("zone with id %s for deactivate: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListZones возвращает список геозон с пагинацией
func (r *ZoneRepository) ListZones(ctx context.Context, page, pageSize int) ([]*models.Zone, error) {
	offset := (page - 1) * pageSize

	query := `SELECT` + zoneColumns + ` FROM zones ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return collectZones(rows)
}

// ListActive возвращает все активные геозоны
func (r *ZoneRepository) ListActive(ctx context.Context) ([]*models.Zone, error) {
	query := `SELECT` + zoneColumns + ` FROM zones WHERE status = 'active' ORDER BY created_at;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active zones: %w", err)
	}
	return collectZones(rows)
}

// GetActiveZonesFromCache пытается получить активные геозоны из Redis.
// Промах кэша возвращает nil, nil.
func (r *ZoneRepository) GetActiveZonesFromCache(ctx context.Context) ([]*models.Zone, error) {
	val, err := r.redisClient.Get(ctx, activeZonesCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active zones from cache: %w", err)
	}

	zones := make([]*models.Zone, 0)
	if err := json.Unmarshal(val, &zones); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active zones from cache: %w", err)
	}
	return zones, nil
}

// SetActiveZonesCache сохраняет активные геозоны в Redis
func (r *ZoneRepository) SetActiveZonesCache(ctx context.Context, zones []*models.Zone) error {
	val, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("failed to marshal active zones for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, activeZonesCacheKey, val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set active zones in cache: %w", err)
	}
	return nil
}

// InvalidateActiveZonesCache удаляет список активных геозон из кэша
func (r *ZoneRepository) InvalidateActiveZonesCache(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, activeZonesCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate active zones cache: %w", err)
	}
	return nil
}

func collectZones(rows pgx.Rows) ([]*models.Zone, error) {
	defer rows.Close()

	zones := make([]*models.Zone, 0)
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone row: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return zones, nil
}

func scanZone(row pgx.Row) (*models.Zone, error) {
	zone := &models.Zone{}
	var (
		start, end string
		days       []int32
	)
	err := row.Scan(
		&zone.ID,
		&zone.Name,
		&zone.Latitude,
		&zone.Longitude,
		&zone.RadiusMeters,
		&zone.Status,
		&zone.AllowedMembers,
		&start,
		&end,
		&days,
		&zone.Timezone,
		&zone.CreatedAt,
		&zone.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start != "" || end != "" {
		zone.WorkingHours = &models.WorkingHours{Start: start, End: end}
	}
	for _, d := range days {
		zone.WorkingDays = append(zone.WorkingDays, time.Weekday(d))
	}
	return zone, nil
}

func splitWorkingHours(wh *models.WorkingHours) (string, string) {
	if wh == nil {
		return "", ""
	}
	return wh.Start, wh.End
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

// members не дает записать NULL в NOT NULL колонку
func members(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func timezoneOrUTC(tz string) string {
	if tz == "" {
		return "UTC"
	}
	return tz
}
