package oracle

import (
	"strings"
	"time"
)

type Kind string

const (
	KindValuationRequested Kind = "PropertyValuationRequested"
	KindValuationUpdated   Kind = "PropertyValuationUpdated"
	KindRequestFailed      Kind = "RequestFailed"
)

func (k Kind) Valid() bool {
	switch k {
	case KindValuationRequested, KindValuationUpdated, KindRequestFailed:
		return true
	default:
		return false
	}
}

func (k Kind) resolves() bool {
	return k == KindValuationUpdated || k == KindRequestFailed
}

func ParseKind(raw string) Kind {
	trimmed := strings.TrimSpace(raw)
	for _, kind := range []Kind{KindValuationRequested, KindValuationUpdated, KindRequestFailed} {
		if strings.EqualFold(trimmed, string(kind)) {
			return kind
		}
	}
	return Kind(trimmed)
}

// Event is one oracle log record. Records are immutable once observed.
type Event struct {
	Key          string
	Kind         Kind
	EntityID     string
	RequestID    string
	ObservedAt   time.Time
	BlockNumber  uint64
	LogIndex     uint
	TxHash       string
	OldValuation string
	NewValuation string
	Error        string
}

// After reports whether e is strictly later than other. Chain position breaks
// timestamp ties; equal positions are not later.
func (e Event) After(other Event) bool {
	if !e.ObservedAt.Equal(other.ObservedAt) {
		return e.ObservedAt.After(other.ObservedAt)
	}
	if e.BlockNumber != other.BlockNumber {
		return e.BlockNumber > other.BlockNumber
	}
	return e.LogIndex > other.LogIndex
}

// ranksAbove is a total order used when a single maximum must be picked. Records
// tied on chain position fall back to their content, so keyless duplicates of one
// position still order the same way in any input order.
func (e Event) ranksAbove(other Event) bool {
	if e.After(other) {
		return true
	}
	if other.After(e) {
		return false
	}
	for _, pair := range [][2]string{
		{e.Key, other.Key},
		{e.TxHash, other.TxHash},
		{e.RequestID, other.RequestID},
		{string(e.Kind), string(other.Kind)},
		{e.EntityID, other.EntityID},
		{e.NewValuation, other.NewValuation},
		{e.OldValuation, other.OldValuation},
		{e.Error, other.Error},
	} {
		if pair[0] != pair[1] {
			return pair[0] > pair[1]
		}
	}
	return false
}
