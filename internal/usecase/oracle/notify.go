package oracle

import (
	"context"
	"log/slog"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

const (
	NotificationStatus         = "status"
	NotificationDispatched     = "dispatched"
	NotificationDispatchFailed = "dispatch_failed"
)

func (s *Service) notify(ctx context.Context, notification ports.OracleNotification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		logging.Warn(ctx, "oracle notification not delivered",
			slog.String("type", notification.Type),
			slog.String("entity_id", notification.EntityID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}
