package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

// ZoneSource отдает текущий снимок геозон
type ZoneSource interface {
	CurrentZones() []models.Zone
}

// Enqueuer сохраняет событие для доставки
type Enqueuer interface {
	Enqueue(ctx context.Context, event *models.AttendanceEvent) error
}

type zoneState struct {
	inside bool
	// streak - сколько отсчетов подряд не согласны с inside
	streak int
}

// Detector превращает отсчеты местоположения в события входа и выхода.
// Состояние принадлежит одному экземпляру; вызывать OnSample из одной горутины.
type Detector struct {
	zones  ZoneSource
	outbox Enqueuer
	logger *logrus.Logger
	cfg    config.DetectorConfig
	now    func() time.Time

	states map[uuid.UUID]*zoneState
	seeded bool
}

func New(zones ZoneSource, outbox Enqueuer, logger *logrus.Logger, cfg config.DetectorConfig) *Detector {
	if cfg.MinConsecutive < 1 {
		cfg.MinConsecutive = 1
	}
	return &Detector{
		zones:  zones,
		outbox: outbox,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		states: make(map[uuid.UUID]*zoneState),
	}
}

// OnSample классифицирует отсчет по всем геозонам снимка и ставит переходы в очередь.
// Возвращает события, принятые очередью. Состояние зоны меняется только после
// успешной постановки, поэтому неудавшийся переход повторится на следующем отсчете.
func (d *Detector) OnSample(ctx context.Context, sample models.LocationSample) ([]models.AttendanceEvent, error) {
	if err := sample.Validate(); err != nil {
		d.logger.WithError(err).Warn("Dropping invalid location sample")
		return nil, err
	}
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = d.now()
	}

	zones := d.zones.CurrentZones()

	if !d.seeded {
		d.seeded = true
		if d.cfg.SeedFirstSample {
			for i := range zones {
				d.states[zones[i].ID] = &zoneState{inside: zones[i].Contains(sample.Coordinate)}
			}
			d.logger.WithField("zones", len(zones)).Debug("Containment seeded from first sample")
			return nil, nil
		}
	}

	var (
		emitted []models.AttendanceEvent
		errs    []error
	)

	present := make(map[uuid.UUID]struct{}, len(zones))
	for i := range zones {
		zone := &zones[i]
		present[zone.ID] = struct{}{}

		state, ok := d.states[zone.ID]
		if !ok {
			// Зона, появившаяся после старта, начинает снаружи
			state = &zoneState{}
			d.states[zone.ID] = state
		}

		inside := zone.Contains(sample.Coordinate)
		if inside == state.inside {
			state.streak = 0
			continue
		}
		state.streak++
		if state.streak < d.cfg.MinConsecutive {
			continue
		}

		eventType := models.EventGeofenceExit
		if inside {
			eventType = models.EventGeofenceEnter
		}
		event, err := d.emit(ctx, zone.ID, eventType, sample)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		state.inside = inside
		state.streak = 0
		emitted = append(emitted, event)
	}

	// Зоны, пропавшие из снимка: неявный выход, если были внутри
	for _, id := range d.missingZones(present) {
		if !d.states[id].inside {
			delete(d.states, id)
			continue
		}
		event, err := d.emit(ctx, id, models.EventGeofenceExit, sample)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		delete(d.states, id)
		emitted = append(emitted, event)
	}

	return emitted, errors.Join(errs...)
}

func (d *Detector) missingZones(present map[uuid.UUID]struct{}) []uuid.UUID {
	var missing []uuid.UUID
	for id := range d.states {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].String() < missing[j].String()
	})
	return missing
}

func (d *Detector) emit(ctx context.Context, zoneID uuid.UUID, eventType models.EventType, sample models.LocationSample) (models.AttendanceEvent, error) {
	id := zoneID
	event := models.AttendanceEvent{
		LocalID:    uuid.New(),
		Type:       eventType,
		Location:   sample.Coordinate,
		ZoneID:     &id,
		ObservedAt: sample.ObservedAt,
	}

	log := d.logger.WithFields(logrus.Fields{
		"zone_id":  zoneID,
		"type":     eventType,
		"local_id": event.LocalID,
	})
	if err := d.outbox.Enqueue(ctx, &event); err != nil {
		log.WithError(err).Error("Failed to enqueue transition, will retry on next sample")
		return models.AttendanceEvent{}, fmt.Errorf("detector: could not enqueue %s for zone %s: %w", eventType, zoneID, err)
	}
	log.Info("Zone transition detected")
	return event, nil
}

// Inside сообщает сохраненное состояние зоны
func (d *Detector) Inside(zoneID uuid.UUID) bool {
	state, ok := d.states[zoneID]
	return ok && state.inside
}
