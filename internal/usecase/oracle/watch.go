package oracle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

type WatchInput struct {
	WatchlistFile string
	// Interval overrides the poll interval from settings when positive.
	Interval time.Duration
}

// Watch ingests pushed events as they arrive and runs a full SyncOnce tick on
// every interval, so the cursor poll still reads whatever the feed missed. A
// dropped feed is answered with an immediate tick and a resubscribe.
func (s *Service) Watch(ctx context.Context, input WatchInput) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := s.requireStore(); err != nil {
		return err
	}
	if s.source == nil {
		return errors.New("event source is required")
	}
	logCtx := logging.WithComponent(ctx, "usecase.oracle.watch")

	if !s.watchTick(ctx, logCtx, input) {
		return nil
	}

	sub, err := s.subscribe(ctx)
	if err != nil {
		return errs.Wrap(err, "subscribe oracle events")
	}
	defer func() {
		if sub != nil {
			sub.Unsubscribe()
		}
	}()

	interval := s.watchInterval(input)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logging.Info(logCtx, "watching oracle events", slog.Duration("interval", interval))

	for {
		var dropped <-chan error
		if sub != nil {
			dropped = sub.Err()
		}
		select {
		case <-ctx.Done():
			logging.Info(logCtx, "oracle watch stopped")
			return nil
		case err := <-dropped:
			logging.Warn(logCtx, "oracle event feed dropped, polling", slog.Any("err", errs.Loggable(err)))
			sub.Unsubscribe()
			sub = nil
			if !s.watchTick(ctx, logCtx, input) {
				return nil
			}
		case <-ticker.C:
			if !s.watchTick(ctx, logCtx, input) {
				return nil
			}
			if sub == nil {
				sub, err = s.subscribe(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					logging.Error(logCtx, "resubscribe oracle events", slog.Any("err", errs.Loggable(err)))
				}
			}
			if next := s.watchInterval(input); next != interval {
				interval = next
				ticker.Reset(interval)
				logging.Info(logCtx, "watch interval changed", slog.Duration("interval", interval))
			}
		}
	}
}

func (s *Service) subscribe(ctx context.Context) (ports.Subscription, error) {
	return s.source.Subscribe(ctx, func(handlerCtx context.Context, events []domainoracle.Event) error {
		_, err := s.Ingest(handlerCtx, events)
		return err
	})
}

func (s *Service) watchTick(ctx context.Context, logCtx context.Context, input WatchInput) bool {
	if _, err := s.SyncOnce(ctx, SyncInput{WatchlistFile: s.watchlistFile(input)}); err != nil {
		if ctx.Err() != nil {
			return false
		}
		logging.Error(logCtx, "oracle watch tick failed", slog.Any("err", errs.Loggable(err)))
	}
	return ctx.Err() == nil
}

func (s *Service) watchInterval(input WatchInput) time.Duration {
	if input.Interval > 0 {
		return input.Interval
	}
	return s.Settings().PollInterval
}

func (s *Service) watchlistFile(input WatchInput) string {
	if file := strings.TrimSpace(input.WatchlistFile); file != "" {
		return file
	}
	return s.Settings().WatchlistFile
}
