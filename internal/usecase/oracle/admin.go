package oracle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

const defaultEventListLimit = 50

func (s *Service) OracleState(ctx context.Context) (ports.OracleState, error) {
	if s.contract == nil {
		return ports.OracleState{}, domainoracle.ErrChainNotConfigured
	}
	state, err := s.contract.State(ctx)
	if err != nil {
		return ports.OracleState{}, errs.Wrap(err, "read oracle state")
	}
	return state, nil
}

func (s *Service) OracleConfig(ctx context.Context) (ports.OracleConfig, error) {
	if s.contract == nil {
		return ports.OracleConfig{}, domainoracle.ErrChainNotConfigured
	}
	cfg, err := s.contract.Config(ctx)
	if err != nil {
		return ports.OracleConfig{}, errs.Wrap(err, "read oracle config")
	}
	return cfg, nil
}

func (s *Service) UpdateSubscriptionID(ctx context.Context, subscriptionID uint64) (string, error) {
	if s.contract == nil {
		return "", domainoracle.ErrChainNotConfigured
	}
	txHash, err := s.contract.UpdateSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return txHash, errs.Wrap(err, "update oracle subscription id")
	}
	logging.Info(logging.WithComponent(ctx, "usecase.oracle.admin"), "oracle subscription updated",
		slog.Uint64("subscription_id", subscriptionID),
		slog.String("tx_hash", txHash),
	)
	return txHash, nil
}

func (s *Service) UpdateGasLimit(ctx context.Context, gasLimit uint32) (string, error) {
	if gasLimit == 0 {
		return "", ErrInvalidGasLimit
	}
	if s.contract == nil {
		return "", domainoracle.ErrChainNotConfigured
	}
	txHash, err := s.contract.UpdateGasLimit(ctx, gasLimit)
	if err != nil {
		return txHash, errs.Wrap(err, "update oracle gas limit")
	}
	logging.Info(logging.WithComponent(ctx, "usecase.oracle.admin"), "oracle gas limit updated",
		slog.Uint64("gas_limit", uint64(gasLimit)),
		slog.String("tx_hash", txHash),
	)
	return txHash, nil
}

// ListEvents returns stored events, most recent ingested first. An empty entityID lists
// every property.
func (s *Service) ListEvents(ctx context.Context, entityID string, limit int) ([]domainoracle.Event, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if s.events == nil {
		return nil, errors.New("oracle event repository is required")
	}
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	if strings.TrimSpace(entityID) == "" {
		records, err := s.events.ListRecentEvents(ctx, ports.OracleEventFilter{Limit: limit})
		if err != nil {
			return nil, errs.Wrap(err, "list oracle events")
		}
		return eventsFromRecords(records), nil
	}

	entity, err := domainoracle.NormalizeEntityID(entityID)
	if err != nil {
		return nil, err
	}
	// The property view also carries failures matched by request id.
	events, err := s.entityEvents(ctx, entity)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
