package ports

import "time"

// OracleMetrics receives counters from the oracle usecases.
type OracleMetrics interface {
	EventsIngested(appended int, duplicates int, malformed int)
	SyncCompleted(elapsed time.Duration, err error)
	// DispatchFinished records one valuation request attempt. outcome is one of
	// sent, rejected, unconfirmed, skipped.
	DispatchFinished(trigger string, outcome string)
	PendingObserved(entityID string, pending bool)
}
