package models

import "time"

// OutboxEntry - событие в очереди на доставку вместе с учетом попыток
type OutboxEntry struct {
	Seq           int64           `json:"seq"`
	Event         AttendanceEvent `json:"event"`
	AttemptCount  int             `json:"attempt_count"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Eligible сообщает, можно ли пытаться доставить запись в момент now
func (e *OutboxEntry) Eligible(now time.Time) bool {
	return !e.NextAttemptAt.After(now)
}

// DeadLetter - запись, снятая с доставки после терминальной ошибки
type DeadLetter struct {
	LocalID      string    `json:"local_id"`
	Payload      string    `json:"payload"`
	ZoneID       string    `json:"zone_id,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error"`
	DeadAt       time.Time `json:"dead_at"`
}
