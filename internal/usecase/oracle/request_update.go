package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	domainproperty "estateoracle/internal/domain/property"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

type RequestUpdateInput struct {
	EntityID string
	// Location and Description are read from the property registry when empty.
	Location    string
	Description string
	Size        string
	Trigger     string
	// Force dispatches despite a local in-flight marker. A pending request seen in
	// the event log still refuses.
	Force bool
}

type RequestUpdateResult struct {
	DispatchID string
	TxHash     string
	RequestID  string
}

// RequestUpdate dispatches one valuation request. The in-flight marker is written
// before the contract call; it is removed when the write is rejected and kept until
// expiry when the outcome is unknown.
func (s *Service) RequestUpdate(ctx context.Context, input RequestUpdateInput) (RequestUpdateResult, error) {
	if ctx == nil {
		return RequestUpdateResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return RequestUpdateResult{}, err
	}
	if err := s.requireStore(); err != nil {
		return RequestUpdateResult{}, err
	}
	if s.contract == nil {
		return RequestUpdateResult{}, domainoracle.ErrChainNotConfigured
	}

	entity, err := domainoracle.NormalizeEntityID(input.EntityID)
	if err != nil {
		return RequestUpdateResult{}, err
	}
	trigger := strings.TrimSpace(input.Trigger)
	if trigger == "" {
		trigger = TriggerManual
	}

	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "usecase.oracle.request"),
		slog.String("entity_id", entity),
		slog.String("trigger", trigger),
	)
	now := s.now().UTC()
	settings := s.Settings()

	events, err := s.entityEvents(ctx, entity)
	if err != nil {
		return RequestUpdateResult{}, err
	}
	status := domainoracle.ComputeStatus(events, entity)
	if status.HasPendingRequest {
		s.recordDispatch(trigger, "skipped")
		return RequestUpdateResult{}, fmt.Errorf("%w: property %s has %d unresolved request(s)", domainoracle.ErrRequestPending, entity, status.PendingRequests)
	}
	marker, err := s.activeInFlight(ctx, entity, events, now)
	if err != nil {
		return RequestUpdateResult{}, err
	}
	if marker != nil && !input.Force {
		s.recordDispatch(trigger, "skipped")
		return RequestUpdateResult{}, fmt.Errorf("%w: dispatch %s in flight until %s", domainoracle.ErrRequestPending, marker.DispatchID, marker.ExpiresAt.Format(time.RFC3339))
	}

	location, size, err := s.requestArguments(ctx, entity, input)
	if err != nil {
		return RequestUpdateResult{}, err
	}

	next := domainoracle.InFlight{
		DispatchID:   s.newID(),
		EntityID:     entity,
		Trigger:      trigger,
		DispatchedAt: now,
		ExpiresAt:    now.Add(settings.InFlightTimeout),
	}
	if err := s.saveInFlight(ctx, next, now); err != nil {
		return RequestUpdateResult{}, err
	}
	result := RequestUpdateResult{DispatchID: next.DispatchID}

	receipt, sendErr := s.contract.RequestValuationUpdate(ctx, entity, location, size)
	result.TxHash = receipt.TxHash
	result.RequestID = receipt.RequestID
	next.TxHash = receipt.TxHash
	next.RequestID = receipt.RequestID

	if sendErr != nil {
		outcome := "rejected"
		if errors.Is(sendErr, domainoracle.ErrWriteUnconfirmed) {
			outcome = "unconfirmed"
			if err := s.saveInFlight(ctx, next, s.now().UTC()); err != nil {
				logging.Warn(logCtx, "update in-flight marker", slog.Any("err", errs.Loggable(err)))
			}
		} else if err := s.clearInFlight(ctx, entity); err != nil {
			logging.Warn(logCtx, "clear in-flight marker", slog.Any("err", errs.Loggable(err)))
		}

		s.recordDispatch(trigger, outcome)
		logging.Error(logCtx, "valuation request failed",
			slog.String("dispatch_id", next.DispatchID),
			slog.String("outcome", outcome),
			slog.String("tx_hash", receipt.TxHash),
			slog.Any("err", errs.Loggable(sendErr)),
		)
		s.notify(ctx, ports.OracleNotification{
			Type:       NotificationDispatchFailed,
			EntityID:   entity,
			Pending:    outcome == "unconfirmed",
			DispatchID: next.DispatchID,
			TxHash:     receipt.TxHash,
			Message:    sendErr.Error(),
			OccurredAt: now,
		})
		return result, errs.Wrapf(sendErr, "request valuation update for property %s", entity)
	}

	if err := s.saveInFlight(ctx, next, s.now().UTC()); err != nil {
		logging.Warn(logCtx, "update in-flight marker", slog.Any("err", errs.Loggable(err)))
	}
	s.recordDispatch(trigger, "sent")
	logging.Info(logCtx, "valuation request sent",
		slog.String("dispatch_id", next.DispatchID),
		slog.String("tx_hash", receipt.TxHash),
		slog.String("request_id", receipt.RequestID),
	)
	s.notify(ctx, ports.OracleNotification{
		Type:       NotificationDispatched,
		EntityID:   entity,
		Pending:    true,
		DispatchID: next.DispatchID,
		TxHash:     receipt.TxHash,
		OccurredAt: now,
	})
	return result, nil
}

func (s *Service) requestArguments(ctx context.Context, entity string, input RequestUpdateInput) (string, string, error) {
	location := strings.TrimSpace(input.Location)
	description := input.Description
	if location == "" && s.registry != nil {
		record, err := s.registry.GetProperty(ctx, entity)
		if err != nil {
			return "", "", errs.Wrapf(err, "read property %s", entity)
		}
		location = strings.TrimSpace(record.Location)
		if description == "" {
			description = record.Description
		}
	}
	if location == "" {
		return "", "", fmt.Errorf("%w: property %s", ErrLocationRequired, entity)
	}
	return location, domainproperty.SizeHint(input.Size, description), nil
}

func (s *Service) recordDispatch(trigger string, outcome string) {
	if s.metrics != nil {
		s.metrics.DispatchFinished(trigger, outcome)
	}
}
