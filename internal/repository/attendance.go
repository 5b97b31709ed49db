package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/service"
)

type AttendanceRepository struct {
	db *pgxpool.Pool
}

func NewAttendanceRepository(db *pgxpool.Pool) service.AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// GetByLocalID возвращает принятое событие по идентификатору, выданному агентом
func (r *AttendanceRepository) GetByLocalID(ctx context.Context, localID uuid.UUID) (*models.AttendanceRecord, error) {
	record := &models.AttendanceRecord{}
	query := `
		SELECT id, local_id, user_id, type, latitude, longitude, accuracy, zone_id, observed_at, received_at
		FROM attendance_events
		WHERE local_id = $1;
	`
	err := r.db.QueryRow(ctx, query, localID).Scan(
		&record.ID,
		&record.LocalID,
		&record.UserID,
		&record.Type,
		&record.Latitude,
		&record.Longitude,
		&record.Accuracy,
		&record.ZoneID,
		&record.ObservedAt,
		&record.ReceivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("attendance event %s: %w", localID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attendance event: %w", err)
	}
	return record, nil
}

// Save сохраняет событие. false без ошибки - событие с таким local_id уже есть.
func (r *AttendanceRepository) Save(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance_events (local_id, user_id, type, latitude, longitude, accuracy, zone_id, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (local_id) DO NOTHING
		RETURNING id, received_at;
	`
	err := r.db.QueryRow(ctx, query,
		record.LocalID,
		record.UserID,
		record.Type,
		record.Latitude,
		record.Longitude,
		record.Accuracy,
		record.ZoneID,
		record.ObservedAt,
	).Scan(&record.ID, &record.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save attendance event: %w", err)
	}
	return true, nil
}

// CountActiveUsers возвращает количество уникальных сотрудников с отметками за последние minutes минут
func (r *AttendanceRepository) CountActiveUsers(ctx context.Context, minutes int) (int, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM attendance_events
		WHERE received_at >= NOW() - ($1 * INTERVAL '1 minute');
	`
	var count int
	if err := r.db.QueryRow(ctx, query, minutes).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get attendance stats: %w", err)
	}
	return count, nil
}
