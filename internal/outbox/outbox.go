package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS outbox_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	local_id TEXT NOT NULL UNIQUE,
	event_data TEXT NOT NULL,
	zone_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	last_error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox_dead_letters (
	local_id TEXT PRIMARY KEY,
	event_data TEXT NOT NULL,
	zone_id TEXT NOT NULL DEFAULT '',
	attempt_count INTEGER NOT NULL,
	last_error TEXT NOT NULL,
	dead_at INTEGER NOT NULL
);
`

// Outbox - долговременная очередь событий на устройстве.
// Записи переживают перезапуск и удаляются только после подтверждения сервера.
type Outbox struct {
	db     *sql.DB
	logger *logrus.Logger
	cfg    config.OutboxConfig

	// Все операции последовательны: детектор и воркер доставки не пересекаются
	mu    sync.Mutex
	ready chan struct{}
	now   func() time.Time
}

// New создает схему при необходимости и возвращает очередь поверх открытой базы
func New(ctx context.Context, db *sql.DB, logger *logrus.Logger, cfg config.OutboxConfig) (*Outbox, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create outbox schema: %w", err)
	}
	return &Outbox{
		db:     db,
		logger: logger,
		cfg:    cfg,
		ready:  make(chan struct{}, 1),
		now:    time.Now,
	}, nil
}

// Ready получает сигнал после каждой успешной постановки в очередь
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Enqueue сохраняет событие. Пустой LocalID заменяется новым UUID.
// Повторная постановка того же LocalID ничего не меняет.
func (o *Outbox) Enqueue(ctx context.Context, event *models.AttendanceEvent) error {
	if event.LocalID == uuid.Nil {
		event.LocalID = uuid.New()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now().UnixNano()
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO outbox_entries (local_id, event_data, zone_id, created_at, attempt_count, next_attempt_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (local_id) DO NOTHING
	`, event.LocalID.String(), string(payload), zoneKey(event), now, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"local_id": event.LocalID,
		"type":     event.Type,
	}).Debug("Event enqueued")

	select {
	case o.ready <- struct{}{}:
	default:
	}
	return nil
}

// DrainOldest возвращает до n записей в порядке постановки, не удаляя их.
// Записи с испорченным содержимым переносятся в dead letters.
func (o *Outbox) DrainOldest(ctx context.Context, n int) ([]models.OutboxEntry, error) {
	return o.DrainAfter(ctx, 0, n)
}

// DrainAfter - то же, что DrainOldest, но начиная с записей, поставленных после afterSeq
func (o *Outbox) DrainAfter(ctx context.Context, afterSeq int64, n int) ([]models.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rows, err := o.db.QueryContext(ctx, `
		SELECT seq, local_id, event_data, attempt_count, next_attempt_at, last_error, created_at
		FROM outbox_entries
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox entries: %w", err)
	}

	type corruptRow struct {
		localID  string
		attempts int
		cause    error
	}
	var (
		entries []models.OutboxEntry
		corrupt []corruptRow
	)
	for rows.Next() {
		var (
			entry                models.OutboxEntry
			localID, eventData   string
			nextAttempt, created int64
		)
		if err := rows.Scan(&entry.Seq, &localID, &eventData, &entry.AttemptCount, &nextAttempt, &entry.LastError, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}

		if err := json.Unmarshal([]byte(eventData), &entry.Event); err != nil {
			corrupt = append(corrupt, corruptRow{localID: localID, attempts: entry.AttemptCount, cause: fmt.Errorf("corrupt payload: %w", err)})
			continue
		}
		if err := entry.Event.Validate(); err != nil {
			corrupt = append(corrupt, corruptRow{localID: localID, attempts: entry.AttemptCount, cause: fmt.Errorf("corrupt payload: %w", err)})
			continue
		}

		entry.Event.DeliveryAttempts = entry.AttemptCount
		entry.NextAttemptAt = time.Unix(0, nextAttempt)
		entry.CreatedAt = time.Unix(0, created)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error outbox iteration: %w", err)
	}
	rows.Close()

	// Соединение одно, переносим только после закрытия курсора
	for _, c := range corrupt {
		o.logger.WithError(c.cause).WithField("local_id", c.localID).Error("Moving corrupt outbox entry to dead letters")
		if err := o.deadLetter(ctx, c.localID, c.attempts, c.cause); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Acknowledge удаляет подтвержденную сервером запись. Повторный вызов не ошибка.
func (o *Outbox) Acknowledge(ctx context.Context, localID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.db.ExecContext(ctx, `DELETE FROM outbox_entries WHERE local_id = ?`, localID.String()); err != nil {
		return fmt.Errorf("failed to acknowledge outbox entry: %w", err)
	}
	return nil
}

// RecordFailure учитывает неудачную попытку. Терминальная ошибка или исчерпанный
// лимит попыток переносят запись в dead letters, тогда возвращается true.
func (o *Outbox) RecordFailure(ctx context.Context, localID uuid.UUID, cause error) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var attempts int
	err := o.db.QueryRowContext(ctx, `SELECT attempt_count FROM outbox_entries WHERE local_id = ?`, localID.String()).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("outbox entry %s: %w", localID, models.ErrNotFound)
		}
		return false, fmt.Errorf("failed to load outbox entry: %w", err)
	}
	attempts++

	if models.IsTerminal(cause) || (o.cfg.MaxAttempts > 0 && attempts >= o.cfg.MaxAttempts) {
		if err := o.deadLetter(ctx, localID.String(), attempts, cause); err != nil {
			return false, err
		}
		return true, nil
	}

	next := o.now().Add(Backoff(attempts, o.cfg.BackoffBase, o.cfg.BackoffMax))
	_, err = o.db.ExecContext(ctx, `
		UPDATE outbox_entries
		SET attempt_count = ?, next_attempt_at = ?, last_error = ?
		WHERE local_id = ?
	`, attempts, next.UnixNano(), cause.Error(), localID.String())
	if err != nil {
		return false, fmt.Errorf("failed to record delivery failure: %w", err)
	}
	return false, nil
}

// deadLetter переносит запись в outbox_dead_letters с числом сделанных попыток. Вызывается под o.mu.
func (o *Outbox) deadLetter(ctx context.Context, localID string, attempts int, cause error) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO outbox_dead_letters (local_id, event_data, zone_id, attempt_count, last_error, dead_at)
		SELECT local_id, event_data, zone_id, ?, ?, ?
		FROM outbox_entries WHERE local_id = ?
	`, attempts, cause.Error(), o.now().UnixNano(), localID)
	if err != nil {
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outbox_entries WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to remove dead-lettered entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Pending возвращает число записей, ожидающих доставки
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var count int
	if err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return count, nil
}

// DeadLetters возвращает снятые с доставки записи, старые первыми
func (o *Outbox) DeadLetters(ctx context.Context) ([]models.DeadLetter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rows, err := o.db.QueryContext(ctx, `
		SELECT local_id, event_data, zone_id, attempt_count, last_error, dead_at
		FROM outbox_dead_letters
		ORDER BY dead_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead letters: %w", err)
	}
	defer rows.Close()

	letters := make([]models.DeadLetter, 0)
	for rows.Next() {
		var (
			letter models.DeadLetter
			deadAt int64
		)
		if err := rows.Scan(&letter.LocalID, &letter.Payload, &letter.ZoneID, &letter.AttemptCount, &letter.LastError, &deadAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		letter.DeadAt = time.Unix(0, deadAt)
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error dead letter iteration: %w", err)
	}
	return letters, nil
}

// Backoff возвращает задержку перед следующей попыткой: base * 2^(attempt-1), не больше maxDelay
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

func zoneKey(event *models.AttendanceEvent) string {
	if event.ZoneID == nil {
		return ""
	}
	return event.ZoneID.String()
}
