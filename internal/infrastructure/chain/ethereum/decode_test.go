package ethereum

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"estateoracle/internal/domain/oracle"
)

var (
	blockTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txHash    = common.HexToHash("0xabc1")
	requestID = common.HexToHash("0x5eed")
)

func mustOracleABI(t *testing.T) abi.ABI {
	t.Helper()
	abis, err := loadABIs()
	if err != nil {
		t.Fatalf("loadABIs() error = %v", err)
	}
	return abis.oracle
}

func packLog(t *testing.T, parsed abi.ABI, name string, topics []common.Hash, data ...any) types.Log {
	t.Helper()
	event, ok := parsed.Events[name]
	if !ok {
		t.Fatalf("event %s missing from abi", name)
	}
	payload, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	return types.Log{
		Topics:      append([]common.Hash{event.ID}, topics...),
		Data:        payload,
		BlockNumber: 120,
		TxHash:      txHash,
		Index:       3,
	}
}

func TestDecodeValuationRequested(t *testing.T) {
	parsed := mustOracleABI(t)
	lg := packLog(t, parsed, "PropertyValuationRequested", []common.Hash{common.BigToHash(big.NewInt(7)), requestID})

	event, err := decodeLog(parsed, lg, blockTime)
	if err != nil {
		t.Fatalf("decodeLog() error = %v", err)
	}
	if event.Kind != oracle.KindValuationRequested || event.EntityID != "7" {
		t.Fatalf("event = %+v", event)
	}
	if event.RequestID != requestID.Hex() {
		t.Fatalf("request id = %s", event.RequestID)
	}
	if event.Key != EventKey(txHash, 3) || event.BlockNumber != 120 || event.LogIndex != 3 {
		t.Fatalf("position = %s/%d/%d", event.Key, event.BlockNumber, event.LogIndex)
	}
	if !event.ObservedAt.Equal(blockTime) {
		t.Fatalf("observed at = %s", event.ObservedAt)
	}
}

func TestDecodeValuationUpdated(t *testing.T) {
	parsed := mustOracleABI(t)
	oldValue, _ := new(big.Int).SetString("450000000000000000000000", 10)
	newValue, _ := new(big.Int).SetString("480000000000000000000000", 10)
	lg := packLog(t, parsed, "PropertyValuationUpdated", []common.Hash{common.BigToHash(big.NewInt(7))}, oldValue, newValue)

	event, err := decodeLog(parsed, lg, blockTime)
	if err != nil {
		t.Fatalf("decodeLog() error = %v", err)
	}
	if event.Kind != oracle.KindValuationUpdated || event.EntityID != "7" {
		t.Fatalf("event = %+v", event)
	}
	if event.OldValuation != oldValue.String() || event.NewValuation != newValue.String() {
		t.Fatalf("valuations = %s -> %s", event.OldValuation, event.NewValuation)
	}
}

func TestDecodeRequestFailedCarriesNoEntity(t *testing.T) {
	parsed := mustOracleABI(t)
	lg := packLog(t, parsed, "RequestFailed", []common.Hash{requestID}, "source unavailable")

	event, err := decodeLog(parsed, lg, blockTime)
	if err != nil {
		t.Fatalf("decodeLog() error = %v", err)
	}
	if event.Kind != oracle.KindRequestFailed || event.EntityID != "" {
		t.Fatalf("event = %+v", event)
	}
	if event.RequestID != requestID.Hex() || event.Error != "source unavailable" {
		t.Fatalf("failure = %s %q", event.RequestID, event.Error)
	}
}

func TestDecodeRejectsForeignAndTruncatedLogs(t *testing.T) {
	parsed := mustOracleABI(t)

	foreign := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	if _, err := decodeLog(parsed, foreign, blockTime); !errors.Is(err, errUnknownEvent) {
		t.Fatalf("foreign log error = %v", err)
	}
	if _, err := decodeLog(parsed, types.Log{}, blockTime); !errors.Is(err, errUnknownEvent) {
		t.Fatalf("empty log error = %v", err)
	}

	truncated := packLog(t, parsed, "PropertyValuationRequested", []common.Hash{common.BigToHash(big.NewInt(7))})
	if _, err := decodeLog(parsed, truncated, blockTime); err == nil {
		t.Fatalf("expected topic count error")
	}
}

func TestEventTopicsCoverOracleEvents(t *testing.T) {
	topics := eventTopics(mustOracleABI(t))
	if len(topics) != 3 {
		t.Fatalf("topics = %v", topics)
	}
}

func TestRenderers(t *testing.T) {
	response := common.BigToHash(big.NewInt(480000)).Bytes()
	if got := renderResponse(response); got != "480000" {
		t.Fatalf("renderResponse = %s", got)
	}
	if got := renderResponse([]byte{0x01, 0x02}); got != "0x0102" {
		t.Fatalf("renderResponse short = %s", got)
	}
	if got := renderText([]byte("timeout\x00")); got != "timeout" {
		t.Fatalf("renderText = %q", got)
	}

	var don [32]byte
	copy(don[:], "fun-ethereum-sepolia-1")
	if got := renderDonID(don); got != "fun-ethereum-sepolia-1" {
		t.Fatalf("renderDonID = %q", got)
	}
	if got := renderDonID(common.HexToHash("0x01")); got != common.HexToHash("0x01").Hex() {
		t.Fatalf("renderDonID binary = %q", got)
	}
}

func TestBlockTimeCacheResetsWhenFull(t *testing.T) {
	cache := newBlockTimeCache(2)
	cache.put(1, blockTime)
	cache.put(2, blockTime)
	cache.put(3, blockTime)

	if _, ok := cache.get(1); ok {
		t.Fatalf("cache should have been reset")
	}
	if at, ok := cache.get(3); !ok || !at.Equal(blockTime) {
		t.Fatalf("latest entry missing")
	}
}

func TestParseEntityID(t *testing.T) {
	id, err := parseEntityID("0x0a")
	if err != nil || id.Int64() != 10 {
		t.Fatalf("parseEntityID = %v, %v", id, err)
	}
	if _, err := parseEntityID("ten"); !errors.Is(err, oracle.ErrInvalidEntityID) {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}
