package oracle

import "time"

const DefaultInFlightTimeout = 15 * time.Minute

// InFlight marks a request that was dispatched locally but whose outcome has not yet
// been observed in the event set.
type InFlight struct {
	DispatchID   string
	EntityID     string
	Trigger      string
	TxHash       string
	RequestID    string
	DispatchedAt time.Time
	ExpiresAt    time.Time
}

func (m InFlight) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

// ResolvedBy reports whether an update or failure for the marker's property has been
// observed since the dispatch, or one carries the dispatched request id.
func (m InFlight) ResolvedBy(events []Event) bool {
	entity := normalizeOrEmpty(m.EntityID)
	requestID := normalizeRequestID(m.RequestID)
	for _, event := range ResolveEntities(events) {
		if !event.Kind.resolves() || event.EntityID != entity {
			continue
		}
		if requestID != "" && normalizeRequestID(event.RequestID) == requestID {
			return true
		}
		if !event.ObservedAt.Before(m.DispatchedAt) {
			return true
		}
	}
	return false
}

// EvaluateInFlight reports whether the marker still blocks a new dispatch. Expired
// markers never block.
func EvaluateInFlight(marker *InFlight, events []Event, now time.Time) bool {
	if marker == nil {
		return false
	}
	if marker.Expired(now) {
		return false
	}
	return !marker.ResolvedBy(events)
}
