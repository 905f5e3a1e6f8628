package oracle

import (
	"context"
	"errors"
	"time"

	domainoracle "estateoracle/internal/domain/oracle"
)

type StatusView struct {
	Status domainoracle.EntityStatus
	// InFlight is set only while a local dispatch still blocks new requests.
	InFlight          *domainoracle.InFlight
	AutoUpdate        bool
	ShouldAutoTrigger bool
	StalenessWindow   time.Duration
}

func (s *Service) Status(ctx context.Context, entityID string, now time.Time) (StatusView, error) {
	if ctx == nil {
		return StatusView{}, errors.New("context is required")
	}
	if err := s.requireStore(); err != nil {
		return StatusView{}, err
	}
	entity, err := domainoracle.NormalizeEntityID(entityID)
	if err != nil {
		return StatusView{}, err
	}
	if now.IsZero() {
		now = s.now()
	}
	return s.statusView(ctx, entity, s.Settings().AutoUpdate, now)
}

func (s *Service) statusView(ctx context.Context, entity string, autoUpdate bool, now time.Time) (StatusView, error) {
	settings := s.Settings()
	events, err := s.entityEvents(ctx, entity)
	if err != nil {
		return StatusView{}, err
	}
	status := domainoracle.ComputeStatus(events, entity)

	marker, err := s.activeInFlight(ctx, entity, events, now)
	if err != nil {
		return StatusView{}, err
	}

	return StatusView{
		Status:            status,
		InFlight:          marker,
		AutoUpdate:        autoUpdate,
		ShouldAutoTrigger: marker == nil && domainoracle.ShouldAutoTrigger(status, autoUpdate, now, settings.StalenessWindow),
		StalenessWindow:   settings.StalenessWindow,
	}, nil
}
