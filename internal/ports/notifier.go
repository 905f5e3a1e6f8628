package ports

import (
	"context"
	"time"
)

type OracleNotification struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	Pending    bool      `json:"pending"`
	DispatchID string    `json:"dispatch_id,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes oracle activity. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, notification OracleNotification) error
}
