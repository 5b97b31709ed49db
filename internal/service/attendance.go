package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=attendance.go -destination=mocks/mock_attendance.go -package=mocks

// AttendanceRepository определяет контракт хранения принятых событий
type AttendanceRepository interface {
	GetByLocalID(ctx context.Context, localID uuid.UUID) (*models.AttendanceRecord, error)
	Save(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	CountActiveUsers(ctx context.Context, minutes int) (int, error)
}

// CodeLocalIDConflict - local_id уже занят записью другого сотрудника
const CodeLocalIDConflict = "local_id_conflict"

var ErrLocalIDConflict = errors.New("local_id belongs to another user")

// AttendanceService принимает события от агентов
type AttendanceService interface {
	SubmitEvent(ctx context.Context, userID string, event *models.AttendanceEvent) (*models.AttendanceRecord, bool, error)
	GetStats(ctx context.Context) (int, error)
}

type attendanceService struct {
	repo        AttendanceRepository
	zones       ZoneRepository
	logger      *logrus.Logger
	publisher   webhook.Publisher
	statsWindow int
}

func NewAttendanceService(
	repo AttendanceRepository,
	zones ZoneRepository,
	logger *logrus.Logger,
	publisher webhook.Publisher,
	statsWindowMinutes int,
) AttendanceService {
	return &attendanceService{
		repo:        repo,
		zones:       zones,
		logger:      logger,
		publisher:   publisher,
		statsWindow: statsWindowMinutes,
	}
}

// SubmitEvent проверяет и сохраняет событие. Второе значение - была ли создана новая запись;
// повторная отправка того же local_id возвращает уже сохраненную запись.
func (s *attendanceService) SubmitEvent(ctx context.Context, userID string, event *models.AttendanceEvent) (*models.AttendanceRecord, bool, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "attendance",
		"method":   "SubmitEvent",
		"user_id":  userID,
		"local_id": event.LocalID,
		"type":     event.Type,
	})

	if err := event.Validate(); err != nil {
		log.WithError(err).Warn("Rejected malformed event")
		return nil, false, err
	}

	existing, err := s.repo.GetByLocalID(ctx, event.LocalID)
	if err == nil {
		if err := ownedBy(existing, userID); err != nil {
			log.WithField("owner", existing.UserID).Warn("Rejected local_id owned by another user")
			return nil, false, err
		}
		log.Info("Event already recorded, returning existing record")
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		log.WithError(err).Error("Failed to look up event by local id")
		return nil, false, fmt.Errorf("service: could not check event: %w", err)
	}

	if event.Type.IsGeofence() {
		if err := s.checkPolicy(ctx, userID, event); err != nil {
			var policyErr *PolicyError
			if errors.As(err, &policyErr) {
				log.WithField("code", policyErr.Code).Warn("Event rejected by zone policy")
			} else {
				log.WithError(err).Error("Failed to evaluate zone policy")
			}
			return nil, false, err
		}
	}

	record := &models.AttendanceRecord{
		LocalID:    event.LocalID,
		UserID:     userID,
		Type:       event.Type,
		Latitude:   event.Location.Latitude,
		Longitude:  event.Location.Longitude,
		Accuracy:   event.Location.Accuracy,
		ZoneID:     event.ZoneID,
		ObservedAt: event.ObservedAt,
	}

	created, err := s.repo.Save(ctx, record)
	if err != nil {
		log.WithError(err).Error("Failed to save attendance record")
		return nil, false, fmt.Errorf("service: could not save event: %w", err)
	}
	if !created {
		// Параллельная отправка того же local_id успела раньше
		existing, err := s.repo.GetByLocalID(ctx, event.LocalID)
		if err != nil {
			return nil, false, fmt.Errorf("service: could not load concurrently saved event: %w", err)
		}
		if err := ownedBy(existing, userID); err != nil {
			log.WithField("owner", existing.UserID).Warn("Rejected local_id owned by another user")
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := s.publisher.Publish(ctx, webhook.NewRecordedEvent(record)); err != nil {
		log.WithError(err).Error("Failed to publish attendance webhook event")
	}

	log.WithField("record_id", record.ID).Info("Attendance event recorded")
	return record, true, nil
}

// ownedBy не дает повтором чужого local_id получить чужую запись
func ownedBy(record *models.AttendanceRecord, userID string) error {
	if record.UserID != userID {
		return fmt.Errorf("%w: %s", ErrLocalIDConflict, record.LocalID)
	}
	return nil
}

func (s *attendanceService) checkPolicy(ctx context.Context, userID string, event *models.AttendanceEvent) error {
	zone, err := s.zones.GetByID(ctx, *event.ZoneID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &PolicyError{Code: CodeZoneNotFound, Err: ErrZoneNotFound}
		}
		return fmt.Errorf("service: could not load zone: %w", err)
	}
	return CheckZonePolicy(zone, userID, event)
}

// GetStats возвращает число сотрудников с отметками за окно статистики
func (s *attendanceService) GetStats(ctx context.Context) (int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "attendance",
		"method":  "GetStats",
		"window":  time.Duration(s.statsWindow) * time.Minute,
	})

	count, err := s.repo.CountActiveUsers(ctx, s.statsWindow)
	if err != nil {
		log.WithError(err).Error("Failed to count active users")
		return 0, fmt.Errorf("service: could not get stats: %w", err)
	}
	return count, nil
}
