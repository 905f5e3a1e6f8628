package oracle

import (
	"strings"
	"time"

	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

func recordFromEvent(event domainoracle.Event, ingestedAt time.Time) ports.OracleEventRecord {
	return ports.OracleEventRecord{
		EventKey:     event.Key,
		Kind:         string(event.Kind),
		EntityID:     event.EntityID,
		RequestID:    strings.ToLower(strings.TrimSpace(event.RequestID)),
		BlockNumber:  event.BlockNumber,
		LogIndex:     event.LogIndex,
		TxHash:       event.TxHash,
		OldValuation: event.OldValuation,
		NewValuation: event.NewValuation,
		ErrorMessage: event.Error,
		ObservedAt:   event.ObservedAt,
		IngestedAt:   ingestedAt,
	}
}

func eventFromRecord(record ports.OracleEventRecord) domainoracle.Event {
	return domainoracle.Event{
		Key:          record.EventKey,
		Kind:         domainoracle.ParseKind(record.Kind),
		EntityID:     record.EntityID,
		RequestID:    record.RequestID,
		ObservedAt:   record.ObservedAt,
		BlockNumber:  record.BlockNumber,
		LogIndex:     record.LogIndex,
		TxHash:       record.TxHash,
		OldValuation: record.OldValuation,
		NewValuation: record.NewValuation,
		Error:        record.ErrorMessage,
	}
}

func eventsFromRecords(records []ports.OracleEventRecord) []domainoracle.Event {
	out := make([]domainoracle.Event, 0, len(records))
	for _, record := range records {
		out = append(out, eventFromRecord(record))
	}
	return out
}
