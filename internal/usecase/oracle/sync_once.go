package oracle

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

type SyncInput struct {
	WatchlistFile string
	EventBatch    int
	Now           time.Time
}

type SyncResult struct {
	CursorBefore uint64
	CursorAfter  uint64
	Fetched      int
	Appended     int
	Candidates   int
	Triggered    int
	Skipped      int
	Failed       int
}

// SyncOnce runs one tick: poll the source from the stored cursor, ingest, then
// dispatch a request for every watched property that is due. A failing dispatch
// is counted and logged; it never aborts the tick.
func (s *Service) SyncOnce(ctx context.Context, input SyncInput) (result SyncResult, err error) {
	if ctx == nil {
		return SyncResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SyncResult{}, err
	}
	if err := s.requireStore(); err != nil {
		return SyncResult{}, err
	}
	if s.source == nil {
		return SyncResult{}, errors.New("event source is required")
	}

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SyncCompleted(time.Since(started), err)
		}
	}()

	logCtx := logging.WithComponent(ctx, "usecase.oracle.sync")
	settings := s.Settings()

	batch := input.EventBatch
	if batch <= 0 {
		batch = settings.EventBatch
	}
	watchlistFile := strings.TrimSpace(input.WatchlistFile)
	if watchlistFile == "" {
		watchlistFile = settings.WatchlistFile
	}

	cursorBefore, err := s.readCursor(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	result = SyncResult{CursorBefore: cursorBefore, CursorAfter: cursorBefore}

	events, next, err := s.source.Poll(ctx, ports.Marker(cursorBefore), batch)
	if err != nil {
		return result, errs.Wrap(err, "poll oracle events")
	}
	result.Fetched = len(events)

	ingested, err := s.Ingest(ctx, events)
	if err != nil {
		return result, err
	}
	result.Appended = ingested.Appended

	if uint64(next) != cursorBefore {
		if err := s.cache.Set(ctx, cursorKey, strconv.FormatUint(uint64(next), 10), 0); err != nil {
			return result, errs.Wrap(err, "store oracle cursor")
		}
		result.CursorAfter = uint64(next)
	}

	now := input.Now
	if now.IsZero() {
		now = s.now()
	}
	triggers, err := s.evaluateWatchlist(ctx, watchlistFile, now)
	if err != nil {
		return result, err
	}
	result.Candidates = triggers.Candidates
	result.Triggered = triggers.Triggered
	result.Skipped = triggers.Skipped
	result.Failed = triggers.Failed

	logging.Info(logCtx, "oracle sync tick completed",
		slog.Uint64("cursor_before", result.CursorBefore),
		slog.Uint64("cursor_after", result.CursorAfter),
		slog.Int("fetched", result.Fetched),
		slog.Int("appended", result.Appended),
		slog.Int("candidates", result.Candidates),
		slog.Int("triggered", result.Triggered),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

type triggerSummary struct {
	Candidates int
	Triggered  int
	Skipped    int
	Failed     int
}

func (s *Service) evaluateWatchlist(ctx context.Context, watchlistFile string, now time.Time) (triggerSummary, error) {
	logCtx := logging.WithComponent(ctx, "usecase.oracle.trigger")
	settings := s.Settings()

	list, err := LoadWatchlist(watchlistFile)
	if err != nil {
		return triggerSummary{}, err
	}

	var summary triggerSummary
	for _, property := range list.Properties {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Candidates++
		propCtx := logging.WithAttrs(logCtx, slog.String("entity_id", property.ID))

		view, err := s.statusView(ctx, property.ID, settings.AutoUpdate && property.AutoUpdateEnabled(), now)
		if err != nil {
			summary.Failed++
			logging.Error(propCtx, "evaluate property oracle status", slog.Any("err", errs.Loggable(err)))
			continue
		}
		if !view.ShouldAutoTrigger {
			summary.Skipped++
			continue
		}

		_, err = s.RequestUpdate(ctx, RequestUpdateInput{
			EntityID:    property.ID,
			Location:    property.Location,
			Description: property.Description,
			Size:        property.Size,
			Trigger:     TriggerAuto,
		})
		if err != nil {
			summary.Failed++
			logging.Error(propCtx, "auto valuation request failed", slog.Any("err", errs.Loggable(err)))
			continue
		}
		summary.Triggered++
	}
	return summary, nil
}

func (s *Service) readCursor(ctx context.Context) (uint64, error) {
	value, found, err := s.cache.Get(ctx, cursorKey)
	if err != nil {
		return 0, errs.Wrap(err, "read oracle cursor")
	}
	if !found || strings.TrimSpace(value) == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errs.Wrapf(err, "parse oracle cursor %q", value)
	}
	return parsed, nil
}
