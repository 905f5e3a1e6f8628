package ports

import (
	"context"
	"time"
)

type OracleEventRecord struct {
	Seq          uint64
	EventKey     string
	Kind         string
	EntityID     string
	RequestID    string
	BlockNumber  uint64
	LogIndex     uint
	TxHash       string
	OldValuation string
	NewValuation string
	ErrorMessage string
	ObservedAt   time.Time
	IngestedAt   time.Time
}

type OracleEventFilter struct {
	EntityID  string
	RequestID string
	Limit     int
}

// OracleEventRepository is the durable append-only copy of the oracle event log.
type OracleEventRepository interface {
	// AppendEvent inserts the record unless its EventKey is already stored.
	AppendEvent(ctx context.Context, record OracleEventRecord) (inserted bool, err error)
	// ListEntityEvents returns the events of one property plus failures whose
	// request id belongs to it, ordered by Seq.
	ListEntityEvents(ctx context.Context, entityID string) ([]OracleEventRecord, error)
	ListRecentEvents(ctx context.Context, filter OracleEventFilter) ([]OracleEventRecord, error)
}
