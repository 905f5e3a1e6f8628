package oracle

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

type IngestResult struct {
	Appended   int
	Duplicates int
	Malformed  int
}

// Ingest appends events to the durable log. Malformed records are counted and
// dropped; records already stored are counted as duplicates. After commit, the
// in-flight markers of every touched property are re-evaluated.
func (s *Service) Ingest(ctx context.Context, events []domainoracle.Event) (IngestResult, error) {
	if ctx == nil {
		return IngestResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return IngestResult{}, err
	}
	if err := s.requireStore(); err != nil {
		return IngestResult{}, err
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	logCtx := logging.WithComponent(ctx, "usecase.oracle.ingest")
	now := s.now().UTC()

	var result IngestResult
	batch := domainoracle.NewLog()
	for _, event := range events {
		normalized, ok := normalizeIncoming(event, now)
		if !ok {
			result.Malformed++
			logging.Debug(logCtx, "dropping malformed oracle event",
				slog.String("event_key", event.Key),
				slog.String("kind", string(event.Kind)),
			)
			continue
		}
		if normalized.Key == "" {
			normalized.Key = s.newID()
		}
		batch.Append(normalized)
	}
	wellFormed := batch.Snapshot()
	repeated := len(events) - result.Malformed - len(wellFormed)

	var appended []domainoracle.Event
	err := s.withTx(ctx, func(txCtx context.Context) error {
		appended = appended[:0]
		result.Duplicates = repeated
		for _, event := range wellFormed {
			inserted, err := s.events.AppendEvent(txCtx, recordFromEvent(event, now))
			if err != nil {
				return errs.Wrapf(err, "append oracle event %s", event.Key)
			}
			if inserted {
				appended = append(appended, event)
			} else {
				result.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	result.Appended = len(appended)

	if s.metrics != nil {
		s.metrics.EventsIngested(result.Appended, result.Duplicates, result.Malformed)
	}
	if result.Appended > 0 || result.Malformed > 0 {
		logging.Info(logCtx, "oracle events ingested",
			slog.Int("appended", result.Appended),
			slog.Int("duplicates", result.Duplicates),
			slog.Int("malformed", result.Malformed),
		)
	}

	s.reconcileTouched(logCtx, appended, now)
	return result, nil
}

func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.uow == nil {
		return fn(ctx)
	}
	return s.uow.WithTx(ctx, fn)
}

func normalizeIncoming(event domainoracle.Event, now time.Time) (domainoracle.Event, bool) {
	event.Kind = domainoracle.ParseKind(string(event.Kind))
	if !event.Kind.Valid() {
		return domainoracle.Event{}, false
	}

	if event.EntityID != "" {
		entity, err := domainoracle.NormalizeEntityID(event.EntityID)
		if err != nil {
			return domainoracle.Event{}, false
		}
		event.EntityID = entity
	}

	switch event.Kind {
	case domainoracle.KindRequestFailed:
		if event.EntityID == "" && event.RequestID == "" {
			return domainoracle.Event{}, false
		}
	default:
		if event.EntityID == "" {
			return domainoracle.Event{}, false
		}
	}

	if event.ObservedAt.IsZero() {
		event.ObservedAt = now
	}
	event.ObservedAt = event.ObservedAt.UTC()
	return event, true
}

func (s *Service) reconcileTouched(ctx context.Context, appended []domainoracle.Event, now time.Time) {
	if len(appended) == 0 {
		return
	}

	touched := make(map[string]struct{})
	for _, event := range appended {
		if event.EntityID != "" {
			touched[event.EntityID] = struct{}{}
			continue
		}
		owner, err := s.requestOwner(ctx, event.RequestID)
		if err != nil {
			logging.Warn(ctx, "resolve failed request owner", slog.String("request_id", event.RequestID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		if owner != "" {
			touched[owner] = struct{}{}
		}
	}

	entities := make([]string, 0, len(touched))
	for entity := range touched {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		if _, err := s.refreshEntity(ctx, entity, now); err != nil {
			logging.Warn(ctx, "refresh property oracle status",
				slog.String("entity_id", entity),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
}

func (s *Service) requestOwner(ctx context.Context, requestID string) (string, error) {
	if requestID == "" {
		return "", nil
	}
	records, err := s.events.ListRecentEvents(ctx, ports.OracleEventFilter{RequestID: requestID, Limit: 16})
	if err != nil {
		return "", err
	}
	for _, record := range records {
		if domainoracle.ParseKind(record.Kind) == domainoracle.KindValuationRequested && record.EntityID != "" {
			return record.EntityID, nil
		}
	}
	return "", nil
}

func (s *Service) refreshEntity(ctx context.Context, entity string, now time.Time) (domainoracle.EntityStatus, error) {
	events, err := s.entityEvents(ctx, entity)
	if err != nil {
		return domainoracle.EntityStatus{}, err
	}
	status := domainoracle.ComputeStatus(events, entity)

	marker, err := s.loadInFlight(ctx, entity)
	if err != nil {
		return status, err
	}
	if marker != nil && !domainoracle.EvaluateInFlight(marker, events, now) {
		if err := s.clearInFlight(ctx, entity); err != nil {
			return status, err
		}
		logging.Info(ctx, "in-flight marker resolved",
			slog.String("entity_id", entity),
			slog.String("dispatch_id", marker.DispatchID),
		)
	}

	if s.metrics != nil {
		s.metrics.PendingObserved(entity, status.HasPendingRequest)
	}
	s.notify(ctx, ports.OracleNotification{
		Type:       NotificationStatus,
		EntityID:   entity,
		Pending:    status.HasPendingRequest,
		OccurredAt: now,
	})
	return status, nil
}

func (s *Service) entityEvents(ctx context.Context, entity string) ([]domainoracle.Event, error) {
	records, err := s.events.ListEntityEvents(ctx, entity)
	if err != nil {
		return nil, errs.Wrapf(err, "list events of property %s", entity)
	}
	return eventsFromRecords(records), nil
}
