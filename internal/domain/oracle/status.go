package oracle

import "sort"

// EntityStatus is derived from the event set on every call and never stored.
type EntityStatus struct {
	EntityID             string
	HasPendingRequest    bool
	PendingRequests      int
	LastSuccessfulUpdate *Event
	FailedRequests       []Event
	CanRequestUpdate     bool
}

// ComputeStatus derives the oracle status of one property. The result depends only
// on the set of events, not on their order. Malformed records are skipped.
func ComputeStatus(events []Event, entityID string) EntityStatus {
	target := normalizeOrEmpty(entityID)
	status := EntityStatus{
		EntityID:         target,
		CanRequestUpdate: true,
	}
	if target == "" {
		return status
	}

	var requested, resolving []Event
	var lastUpdate *Event
	for _, event := range ResolveEntities(events) {
		if event.EntityID != target {
			continue
		}

		switch event.Kind {
		case KindValuationRequested:
			requested = append(requested, event)
		case KindValuationUpdated:
			resolving = append(resolving, event)
			if lastUpdate == nil || event.ranksAbove(*lastUpdate) {
				picked := event
				lastUpdate = &picked
			}
		case KindRequestFailed:
			resolving = append(resolving, event)
			status.FailedRequests = append(status.FailedRequests, event)
		}
	}

	for _, request := range requested {
		if !resolvedAfter(request, resolving) {
			status.PendingRequests++
		}
	}

	sort.SliceStable(status.FailedRequests, func(i, j int) bool {
		return status.FailedRequests[i].ranksAbove(status.FailedRequests[j])
	})

	status.HasPendingRequest = status.PendingRequests > 0
	status.CanRequestUpdate = !status.HasPendingRequest
	status.LastSuccessfulUpdate = lastUpdate
	return status
}

// ResolveEntities returns the well-formed events with normalised property ids.
// RequestFailed carries only a request id on chain; it inherits the property of the
// request that carried the same id. Ambiguous or unknown ids are dropped.
func ResolveEntities(events []Event) []Event {
	owners := make(map[string]string)
	ambiguous := make(map[string]struct{})
	for _, event := range events {
		if event.Kind != KindValuationRequested {
			continue
		}
		requestID := normalizeRequestID(event.RequestID)
		entity := normalizeOrEmpty(event.EntityID)
		if requestID == "" || entity == "" {
			continue
		}
		if owner, ok := owners[requestID]; ok && owner != entity {
			ambiguous[requestID] = struct{}{}
			continue
		}
		owners[requestID] = entity
	}

	out := make([]Event, 0, len(events))
	for _, event := range events {
		if !event.Kind.Valid() {
			continue
		}

		entity := normalizeOrEmpty(event.EntityID)
		if entity == "" && event.Kind == KindRequestFailed {
			requestID := normalizeRequestID(event.RequestID)
			if _, skip := ambiguous[requestID]; !skip {
				entity = owners[requestID]
			}
		}
		if entity == "" {
			continue
		}

		event.EntityID = entity
		out = append(out, event)
	}
	return out
}

func resolvedAfter(request Event, resolving []Event) bool {
	for _, candidate := range resolving {
		if candidate.After(request) {
			return true
		}
	}
	return false
}
