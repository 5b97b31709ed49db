package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=tracker.go -destination=mocks/mock_tracker.go -package=mocks

var (
	ErrTrackingStopped = errors.New("tracking is stopped")
	ErrNoLocation      = errors.New("no known location")
)

// SampleHandler обрабатывает отсчеты местоположения (детектор переходов)
type SampleHandler interface {
	OnSample(ctx context.Context, sample models.LocationSample) ([]models.AttendanceEvent, error)
}

// Enqueuer ставит ручные отметки в очередь доставки
type Enqueuer interface {
	Enqueue(ctx context.Context, event *models.AttendanceEvent) error
}

// Tracker принимает отсчеты от нескольких источников в одну ограниченную очередь.
// Очередь читает единственная горутина, которой принадлежит детектор.
type Tracker struct {
	handler    SampleHandler
	outbox     Enqueuer
	logger     *logrus.Logger
	bufferSize int
	now        func() time.Time

	mu      sync.Mutex
	samples chan models.LocationSample
	cancel  context.CancelFunc
	done    chan struct{}
	last    *models.Coordinate
}

func New(handler SampleHandler, outbox Enqueuer, logger *logrus.Logger, bufferSize int) *Tracker {
	return &Tracker{
		handler:    handler,
		outbox:     outbox,
		logger:     logger,
		bufferSize: bufferSize,
		now:        time.Now,
	}
}

// Start запускает потребителя отсчетов. Повторный вызов ничего не делает.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.samples != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.samples = make(chan models.LocationSample, t.bufferSize)
	t.cancel = cancel
	t.done = make(chan struct{})

	t.logger.Info("Location tracking started")
	go t.consume(ctx, t.samples, t.done)
}

// Stop останавливает потребителя и отбрасывает необработанные отсчеты.
// Очередь доставки не затрагивается.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.samples == nil {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	dropped := len(t.samples)
	t.samples = nil
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	<-done
	t.logger.WithField("dropped_samples", dropped).Info("Location tracking stopped")
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples != nil
}

// Submit кладет отсчет в очередь. Блокируется, пока в очереди нет места.
func (t *Tracker) Submit(ctx context.Context, sample models.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	samples, done := t.samples, t.done
	t.mu.Unlock()
	if samples == nil {
		return ErrTrackingStopped
	}

	select {
	case samples <- sample:
		return nil
	case <-done:
		return ErrTrackingStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) consume(ctx context.Context, samples <-chan models.LocationSample, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-samples:
			// Отмена имеет приоритет над очередью
			if ctx.Err() != nil {
				return
			}
			t.process(ctx, sample)
		}
	}
}

func (t *Tracker) process(ctx context.Context, sample models.LocationSample) {
	events, err := t.handler.OnSample(ctx, sample)
	if errors.Is(err, models.ErrInvalidCoordinate) {
		return
	}

	coord := sample.Coordinate
	t.mu.Lock()
	t.last = &coord
	t.mu.Unlock()

	if err != nil {
		t.logger.WithError(err).Warn("Sample processed with errors")
		return
	}
	if len(events) > 0 {
		t.logger.WithField("transitions", len(events)).Debug("Sample produced zone transitions")
	}
}

// LastLocation возвращает координату последнего обработанного отсчета
func (t *Tracker) LastLocation() (models.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return models.Coordinate{}, false
	}
	return *t.last, true
}

// CheckIn ставит в очередь ручную отметку прихода. Без координаты берется последняя известная.
func (t *Tracker) CheckIn(ctx context.Context, location *models.Coordinate) (models.AttendanceEvent, error) {
	return t.manual(ctx, models.EventLogin, location)
}

// CheckOut ставит в очередь ручную отметку ухода
func (t *Tracker) CheckOut(ctx context.Context, location *models.Coordinate) (models.AttendanceEvent, error) {
	return t.manual(ctx, models.EventLogout, location)
}

func (t *Tracker) manual(ctx context.Context, eventType models.EventType, location *models.Coordinate) (models.AttendanceEvent, error) {
	if location == nil {
		last, ok := t.LastLocation()
		if !ok {
			return models.AttendanceEvent{}, ErrNoLocation
		}
		location = &last
	}

	event := &models.AttendanceEvent{
		Type:       eventType,
		Location:   *location,
		ObservedAt: t.now().UTC(),
	}
	if err := t.outbox.Enqueue(ctx, event); err != nil {
		return models.AttendanceEvent{}, fmt.Errorf("failed to enqueue %s: %w", eventType, err)
	}

	t.logger.WithFields(logrus.Fields{
		"local_id": event.LocalID,
		"type":     event.Type,
	}).Info("Manual attendance event queued")
	return *event, nil
}

// FeedJSONLines читает отсчеты построчно в формате JSON и передает их в очередь.
// Пустые и испорченные строки пропускаются. Возвращает число принятых отсчетов.
func (t *Tracker) FeedJSONLines(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	accepted, line := 0, 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var sample models.LocationSample
		if err := json.Unmarshal(raw, &sample); err != nil {
			t.logger.WithError(err).WithField("line", line).Warn("Skipping malformed replay line")
			continue
		}
		err := t.Submit(ctx, sample)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, models.ErrInvalidCoordinate):
			t.logger.WithError(err).WithField("line", line).Warn("Skipping invalid replay sample")
		default:
			return accepted, err
		}
	}
	if err := scanner.Err(); err != nil {
		return accepted, fmt.Errorf("failed to read replay stream: %w", err)
	}
	return accepted, nil
}
