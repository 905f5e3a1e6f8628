package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
)

const (
	cursorKey        = "oracle:cursor"
	inFlightKeyScope = "oracle:inflight:"
)

func inFlightKey(entity string) string {
	return inFlightKeyScope + entity
}

type inFlightRecord struct {
	DispatchID   string    `json:"dispatch_id"`
	EntityID     string    `json:"entity_id"`
	Trigger      string    `json:"trigger"`
	TxHash       string    `json:"tx_hash,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Service) loadInFlight(ctx context.Context, entity string) (*domainoracle.InFlight, error) {
	raw, found, err := s.cache.Get(ctx, inFlightKey(entity))
	if err != nil {
		return nil, errs.Wrap(err, "read in-flight marker")
	}
	if !found || raw == "" {
		return nil, nil
	}

	var record inFlightRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		logging.Warn(ctx, "discarding unreadable in-flight marker",
			slog.String("entity_id", entity),
			slog.Any("err", errs.Loggable(err)),
		)
		return nil, s.clearInFlight(ctx, entity)
	}
	return &domainoracle.InFlight{
		DispatchID:   record.DispatchID,
		EntityID:     record.EntityID,
		Trigger:      record.Trigger,
		TxHash:       record.TxHash,
		RequestID:    record.RequestID,
		DispatchedAt: record.DispatchedAt,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

func (s *Service) saveInFlight(ctx context.Context, marker domainoracle.InFlight, now time.Time) error {
	ttl := marker.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return s.clearInFlight(ctx, marker.EntityID)
	}
	payload, err := json.Marshal(inFlightRecord{
		DispatchID:   marker.DispatchID,
		EntityID:     marker.EntityID,
		Trigger:      marker.Trigger,
		TxHash:       marker.TxHash,
		RequestID:    marker.RequestID,
		DispatchedAt: marker.DispatchedAt.UTC(),
		ExpiresAt:    marker.ExpiresAt.UTC(),
	})
	if err != nil {
		return errs.Wrap(err, "encode in-flight marker")
	}
	if err := s.cache.Set(ctx, inFlightKey(marker.EntityID), string(payload), ttl); err != nil {
		return errs.Wrap(err, "store in-flight marker")
	}
	return nil
}

func (s *Service) clearInFlight(ctx context.Context, entity string) error {
	if err := s.cache.Delete(ctx, inFlightKey(entity)); err != nil {
		return errs.Wrap(err, "delete in-flight marker")
	}
	return nil
}

func (s *Service) activeInFlight(ctx context.Context, entity string, events []domainoracle.Event, now time.Time) (*domainoracle.InFlight, error) {
	marker, err := s.loadInFlight(ctx, entity)
	if err != nil || marker == nil {
		return nil, err
	}
	if !domainoracle.EvaluateInFlight(marker, events, now) {
		return nil, nil
	}
	return marker, nil
}
