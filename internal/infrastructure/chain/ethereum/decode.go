package ethereum

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"estateoracle/internal/domain/oracle"
)

var errUnknownEvent = errors.New("log is not an oracle event")

// EventKey identifies a log across re-deliveries.
func EventKey(txHash common.Hash, logIndex uint) string {
	return fmt.Sprintf("%s:%d", txHash.Hex(), logIndex)
}

func decodeLog(oracleABI abi.ABI, lg types.Log, observedAt time.Time) (oracle.Event, error) {
	if len(lg.Topics) == 0 {
		return oracle.Event{}, errUnknownEvent
	}
	abiEvent, err := oracleABI.EventByID(lg.Topics[0])
	if err != nil {
		return oracle.Event{}, errUnknownEvent
	}

	values := make(map[string]any, len(abiEvent.Inputs))
	if err := abiEvent.Inputs.UnpackIntoMap(values, lg.Data); err != nil {
		return oracle.Event{}, fmt.Errorf("unpack %s data: %w", abiEvent.Name, err)
	}
	var indexed abi.Arguments
	for _, input := range abiEvent.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return oracle.Event{}, fmt.Errorf("parse %s topics: %w", abiEvent.Name, err)
	}

	event := oracle.Event{
		Key:         EventKey(lg.TxHash, lg.Index),
		Kind:        oracle.Kind(abiEvent.Name),
		ObservedAt:  observedAt.UTC(),
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
		TxHash:      lg.TxHash.Hex(),
	}
	if id, ok := values["propertyId"].(*big.Int); ok {
		event.EntityID = oracle.EntityIDFromBig(id)
	}
	if id, ok := values["requestId"].([32]byte); ok {
		event.RequestID = common.Hash(id).Hex()
	}
	if amount, ok := values["oldValuation"].(*big.Int); ok {
		event.OldValuation = amount.String()
	}
	if amount, ok := values["newValuation"].(*big.Int); ok {
		event.NewValuation = amount.String()
	}
	if message, ok := values["error"].(string); ok {
		event.Error = message
	}
	return event, nil
}
