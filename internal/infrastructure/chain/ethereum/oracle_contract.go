package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

// OracleContract binds the deployed valuation oracle.
type OracleContract struct {
	client *Client
}

func NewOracleContract(client *Client) *OracleContract {
	return &OracleContract{client: client}
}

func (o *OracleContract) RequestValuationUpdate(ctx context.Context, entityID string, location string, size string) (ports.ValuationRequestReceipt, error) {
	id, err := parseEntityID(entityID)
	if err != nil {
		return ports.ValuationRequestReceipt{}, err
	}

	receipt, hash, err := o.client.transact(ctx, o.client.oracle, "requestValuationUpdate", id, location, size)
	result := ports.ValuationRequestReceipt{EntityID: id.String()}
	if hash != (common.Hash{}) {
		result.TxHash = hash.Hex()
	}
	if err != nil {
		return result, err
	}
	result.RequestID = o.requestIDFromReceipt(receipt)
	return result, nil
}

func (o *OracleContract) requestIDFromReceipt(receipt *types.Receipt) string {
	if receipt == nil {
		return ""
	}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != o.client.oracleAddr {
			continue
		}
		event, err := decodeLog(o.client.abis.oracle, *lg, o.client.now())
		if err == nil && event.Kind == oracle.KindValuationRequested {
			return event.RequestID
		}
	}
	return ""
}

func (o *OracleContract) State(ctx context.Context) (ports.OracleState, error) {
	c := o.client
	lastRequest, err := callValue[[32]byte](ctx, c, c.oracle, "s_lastRequestId")
	if err != nil {
		return ports.OracleState{}, err
	}
	response, err := callValue[[]byte](ctx, c, c.oracle, "getLatestResponse")
	if err != nil {
		return ports.OracleState{}, err
	}
	lastError, err := callValue[[]byte](ctx, c, c.oracle, "getLatestError")
	if err != nil {
		return ports.OracleState{}, err
	}
	subscription, err := callValue[uint64](ctx, c, c.oracle, "s_subscriptionId")
	if err != nil {
		return ports.OracleState{}, err
	}
	gasLimit, err := callValue[uint32](ctx, c, c.oracle, "gasLimit")
	if err != nil {
		return ports.OracleState{}, err
	}

	return ports.OracleState{
		LastRequestID:  common.Hash(lastRequest).Hex(),
		LastResponse:   renderResponse(response),
		LastError:      renderText(lastError),
		SubscriptionID: strconv.FormatUint(subscription, 10),
		GasLimit:       strconv.FormatUint(uint64(gasLimit), 10),
	}, nil
}

func (o *OracleContract) Config(ctx context.Context) (ports.OracleConfig, error) {
	c := o.client
	subscription, err := callValue[uint64](ctx, c, c.oracle, "s_subscriptionId")
	if err != nil {
		return ports.OracleConfig{}, err
	}
	gasLimit, err := callValue[uint32](ctx, c, c.oracle, "gasLimit")
	if err != nil {
		return ports.OracleConfig{}, err
	}
	donID, err := callValue[[32]byte](ctx, c, c.oracle, "donId")
	if err != nil {
		return ports.OracleConfig{}, err
	}
	token, err := callValue[common.Address](ctx, c, c.oracle, "realEstateToken")
	if err != nil {
		return ports.OracleConfig{}, err
	}

	return ports.OracleConfig{
		SubscriptionID:  strconv.FormatUint(subscription, 10),
		GasLimit:        strconv.FormatUint(uint64(gasLimit), 10),
		DonID:           renderDonID(donID),
		RealEstateToken: token.Hex(),
	}, nil
}

func (o *OracleContract) UpdateSubscriptionID(ctx context.Context, subscriptionID uint64) (string, error) {
	_, hash, err := o.client.transact(ctx, o.client.oracle, "updateSubscriptionId", subscriptionID)
	return hashOrEmpty(hash), err
}

func (o *OracleContract) UpdateGasLimit(ctx context.Context, gasLimit uint32) (string, error) {
	_, hash, err := o.client.transact(ctx, o.client.oracle, "updateGasLimit", gasLimit)
	return hashOrEmpty(hash), err
}

func parseEntityID(raw string) (*big.Int, error) {
	normalized, err := oracle.NormalizeEntityID(raw)
	if err != nil {
		return nil, err
	}
	id, ok := new(big.Int).SetString(normalized, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", oracle.ErrInvalidEntityID, raw)
	}
	return id, nil
}

func hashOrEmpty(hash common.Hash) string {
	if hash == (common.Hash{}) {
		return ""
	}
	return hash.Hex()
}

func renderResponse(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if len(raw) == 32 {
		return new(big.Int).SetBytes(raw).String()
	}
	return hexutil.Encode(raw)
}

func renderText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if utf8.Valid(raw) {
		return strings.TrimRight(string(raw), "\x00")
	}
	return hexutil.Encode(raw)
}

func renderDonID(raw [32]byte) string {
	text := strings.TrimRight(string(raw[:]), "\x00")
	if text != "" && utf8.ValidString(text) && isPrintable(text) {
		return text
	}
	return common.Hash(raw).Hex()
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
