package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/geo_attendance_system/internal/models"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks

const (
	webhookQueueKey = "attendance_webhook_events"

	EventAttendanceRecorded = "attendance.recorded"
)

// Event - данные вебхука о принятой отметке
type Event struct {
	Kind       string           `json:"kind"`
	LocalID    uuid.UUID        `json:"local_id"`
	UserID     string           `json:"user_id"`
	Type       models.EventType `json:"type"`
	ZoneID     *uuid.UUID       `json:"zone_id,omitempty"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	ObservedAt time.Time        `json:"observed_at"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewRecordedEvent строит событие вебхука из сохраненной записи
func NewRecordedEvent(record *models.AttendanceRecord) Event {
	return Event{
		Kind:       EventAttendanceRecorded,
		LocalID:    record.LocalID,
		UserID:     record.UserID,
		Type:       record.Type,
		ZoneID:     record.ZoneID,
		Latitude:   record.Latitude,
		Longitude:  record.Longitude,
		ObservedAt: record.ObservedAt,
		Timestamp:  time.Now().UTC(),
	}
}

// Publisher - интерфейс для публикации вебхуков
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher - реализация Publisher, использующая список Redis как очередь
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH + BRPOP в воркере дают FIFO
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
