package ports

import (
	"context"

	"estateoracle/internal/domain/oracle"
)

// Marker is an opaque low-water mark understood by the source that issued it.
// The chain adapter uses the next block number to scan.
type Marker uint64

type EventHandler func(ctx context.Context, events []oracle.Event) error

// Subscription reports a dropped feed on Err. Unsubscribe is safe to call more
// than once.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

// EventSource delivers oracle events either on demand or pushed as observed.
// Callers treat both modes the same: each delivery grows the known event set.
type EventSource interface {
	Poll(ctx context.Context, since Marker, limit int) (events []oracle.Event, next Marker, err error)
	Subscribe(ctx context.Context, handler EventHandler) (Subscription, error)
}
