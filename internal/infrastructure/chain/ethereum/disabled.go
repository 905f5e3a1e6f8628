package ethereum

import (
	"context"
	"math/big"

	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

// Disabled stands in for every chain port when no RPC endpoint is configured, so
// commands that only read the local log still start.
type Disabled struct{}

func (Disabled) Poll(context.Context, ports.Marker, int) ([]oracle.Event, ports.Marker, error) {
	return nil, 0, oracle.ErrChainNotConfigured
}

func (Disabled) Subscribe(context.Context, ports.EventHandler) (ports.Subscription, error) {
	return nil, oracle.ErrChainNotConfigured
}

func (Disabled) RequestValuationUpdate(context.Context, string, string, string) (ports.ValuationRequestReceipt, error) {
	return ports.ValuationRequestReceipt{}, oracle.ErrChainNotConfigured
}

func (Disabled) State(context.Context) (ports.OracleState, error) {
	return ports.OracleState{}, oracle.ErrChainNotConfigured
}

func (Disabled) Config(context.Context) (ports.OracleConfig, error) {
	return ports.OracleConfig{}, oracle.ErrChainNotConfigured
}

func (Disabled) UpdateSubscriptionID(context.Context, uint64) (string, error) {
	return "", oracle.ErrChainNotConfigured
}

func (Disabled) UpdateGasLimit(context.Context, uint32) (string, error) {
	return "", oracle.ErrChainNotConfigured
}

func (Disabled) GetProperty(context.Context, string) (ports.PropertyRecord, error) {
	return ports.PropertyRecord{}, oracle.ErrChainNotConfigured
}

func (Disabled) GetPropertyFinancials(context.Context, string) (ports.PropertyFinancialsRecord, error) {
	return ports.PropertyFinancialsRecord{}, oracle.ErrChainNotConfigured
}

func (Disabled) UpdateProperty(context.Context, ports.PropertyUpdate) (string, error) {
	return "", oracle.ErrChainNotConfigured
}

func (Disabled) UpdatePropertyValuation(context.Context, string, *big.Int) (string, error) {
	return "", oracle.ErrChainNotConfigured
}

func (Disabled) UpdateRentalIncome(context.Context, string, *big.Int) (string, error) {
	return "", oracle.ErrChainNotConfigured
}

var (
	_ ports.EventSource      = Disabled{}
	_ ports.OracleContract   = Disabled{}
	_ ports.PropertyRegistry = Disabled{}
	_ ports.EventSource      = (*EventSource)(nil)
	_ ports.OracleContract   = (*OracleContract)(nil)
	_ ports.PropertyRegistry = (*PropertyRegistry)(nil)
)
