package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks

// Submitter отправляет событие в систему учета
type Submitter interface {
	SubmitAttendanceEvent(ctx context.Context, event models.AttendanceEvent) error
}

// Queue - операции очереди, нужные воркеру
type Queue interface {
	DrainAfter(ctx context.Context, afterSeq int64, n int) ([]models.OutboxEntry, error)
	Acknowledge(ctx context.Context, localID uuid.UUID) error
	RecordFailure(ctx context.Context, localID uuid.UUID, cause error) (bool, error)
	Ready() <-chan struct{}
}

// Worker - единственный потребитель очереди событий.
// Внутри одного ключа упорядочивания (зона или ручные отметки) запись N+1
// не отправляется, пока запись N не подтверждена или не снята в dead letters.
type Worker struct {
	queue        Queue
	submitter    Submitter
	logger       *logrus.Logger
	cfg          config.DeliveryConfig
	now          func() time.Time
	onDeadLetter func(entry models.OutboxEntry, cause error)

	wg sync.WaitGroup
}

func NewWorker(queue Queue, submitter Submitter, logger *logrus.Logger, cfg config.DeliveryConfig) *Worker {
	return &Worker{
		queue:     queue,
		submitter: submitter,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// OnDeadLetter регистрирует уведомление о снятом с доставки событии
func (w *Worker) OnDeadLetter(fn func(entry models.OutboxEntry, cause error)) {
	w.onDeadLetter = fn
}

// Start запускает цикл доставки. Воркер просыпается по сигналу очереди или по таймеру.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting delivery worker...")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		for {
			more, err := w.deliverPass(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.WithError(err).Error("Delivery pass failed")
			}
			if more && err == nil {
				continue
			}

			select {
			case <-ctx.Done():
				w.logger.Info("Stopping delivery worker.")
				return
			case <-ticker.C:
			case <-w.queue.Ready():
			}
		}
	}()
}

// Wait ждет завершения цикла после отмены контекста
func (w *Worker) Wait() {
	w.wg.Wait()
}

// DeliverOnce делает один проход по самым старым записям очереди
func (w *Worker) DeliverOnce(ctx context.Context) error {
	_, err := w.deliverPass(ctx)
	return err
}

// deliverPass возвращает true, если пачка была полной и хоть одна запись ушла из очереди.
// Если вся полная пачка заблокирована, проход читает следующую.
func (w *Worker) deliverPass(ctx context.Context) (bool, error) {
	blocked := make(map[string]struct{})
	now := w.now()

	var afterSeq int64
	for {
		entries, err := w.queue.DrainAfter(ctx, afterSeq, w.cfg.BatchSize)
		if err != nil {
			return false, err
		}

		progressed := false
		for _, entry := range entries {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			key := entry.Event.OrderingKey()
			if _, ok := blocked[key]; ok {
				continue
			}
			if !entry.Eligible(now) {
				// Более поздние записи этого ключа ждут
				blocked[key] = struct{}{}
				continue
			}

			done, err := w.attempt(ctx, entry)
			if err != nil {
				return false, err
			}
			if !done {
				blocked[key] = struct{}{}
				continue
			}
			progressed = true
		}

		full := len(entries) == w.cfg.BatchSize
		if progressed || !full {
			return progressed && full, nil
		}
		afterSeq = entries[len(entries)-1].Seq
	}
}

// attempt отправляет одну запись. false - запись осталась в очереди.
func (w *Worker) attempt(ctx context.Context, entry models.OutboxEntry) (bool, error) {
	log := w.logger.WithFields(logrus.Fields{
		"local_id": entry.Event.LocalID,
		"type":     entry.Event.Type,
		"key":      entry.Event.OrderingKey(),
		"attempt":  entry.AttemptCount + 1,
	})

	attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.AttemptTimeout)
	submitErr := w.submitter.SubmitAttendanceEvent(attemptCtx, entry.Event)
	cancel()

	if submitErr == nil {
		if err := w.queue.Acknowledge(ctx, entry.Event.LocalID); err != nil {
			return false, err
		}
		log.Debug("Event acknowledged")
		return true, nil
	}

	// Остановка агента - не неудача доставки
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(submitErr, context.DeadlineExceeded) {
		log = log.WithField("timeout", w.cfg.AttemptTimeout)
	}

	dead, err := w.queue.RecordFailure(ctx, entry.Event.LocalID, submitErr)
	if err != nil {
		return false, err
	}
	if dead {
		log.WithError(submitErr).Error("Event rejected permanently, moved to dead letters")
		if w.onDeadLetter != nil {
			w.onDeadLetter(entry, submitErr)
		}
		// Ключ свободен: следующая запись зоны может идти
		return true, nil
	}

	log.WithError(submitErr).Warn("Delivery failed, will retry")
	return false, nil
}
