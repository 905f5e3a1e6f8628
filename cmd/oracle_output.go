package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainoracle "estateoracle/internal/domain/oracle"
	oracleuc "estateoracle/internal/usecase/oracle"
)

func formatStatus(view oracleuc.StatusView, now time.Time) string {
	status := view.Status
	var b strings.Builder

	fmt.Fprintf(&b, "property=%s pending=%t pending_requests=%d can_request=%t auto_update=%t should_auto_trigger=%t\n",
		orDash(status.EntityID),
		status.HasPendingRequest,
		status.PendingRequests,
		status.CanRequestUpdate,
		view.AutoUpdate,
		view.ShouldAutoTrigger,
	)
	if last := status.LastSuccessfulUpdate; last != nil {
		fmt.Fprintf(&b, "last_update=%s age=%s old=%s new=%s\n",
			formatTime(last.ObservedAt),
			now.Sub(last.ObservedAt).Truncate(time.Second),
			orDash(last.OldValuation),
			orDash(last.NewValuation),
		)
	} else {
		b.WriteString("last_update=-\n")
	}
	if n := len(status.FailedRequests); n > 0 {
		latest := status.FailedRequests[n-1]
		fmt.Fprintf(&b, "failed=%d last_error=%s\n", n, strconv.Quote(latest.Error))
	}
	if marker := view.InFlight; marker != nil {
		fmt.Fprintf(&b, "in_flight dispatch=%s trigger=%s tx=%s expires=%s\n",
			marker.DispatchID,
			orDash(marker.Trigger),
			orDash(marker.TxHash),
			formatTime(marker.ExpiresAt),
		)
	}
	return b.String()
}

func formatEvent(event domainoracle.Event) string {
	line := fmt.Sprintf("%s %-26s property=%s request=%s block=%d",
		formatTime(event.ObservedAt),
		string(event.Kind),
		orDash(event.EntityID),
		orDash(event.RequestID),
		event.BlockNumber,
	)
	switch event.Kind {
	case domainoracle.KindValuationUpdated:
		line += fmt.Sprintf(" old=%s new=%s", orDash(event.OldValuation), orDash(event.NewValuation))
	case domainoracle.KindRequestFailed:
		line += " error=" + strconv.Quote(event.Error)
	}
	return line
}

func formatTime(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return at.UTC().Format(time.RFC3339)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

const (
	outputText = "text"
	outputYAML = "yaml"
	outputJSON = "json"
)

type eventDocument struct {
	Key          string    `json:"key" yaml:"key"`
	Kind         string    `json:"kind" yaml:"kind"`
	EntityID     string    `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	ObservedAt   time.Time `json:"observed_at" yaml:"observed_at"`
	BlockNumber  uint64    `json:"block_number,omitempty" yaml:"block_number,omitempty"`
	TxHash       string    `json:"tx_hash,omitempty" yaml:"tx_hash,omitempty"`
	OldValuation string    `json:"old_valuation,omitempty" yaml:"old_valuation,omitempty"`
	NewValuation string    `json:"new_valuation,omitempty" yaml:"new_valuation,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
}

type inFlightDocument struct {
	DispatchID   string    `json:"dispatch_id" yaml:"dispatch_id"`
	Trigger      string    `json:"trigger" yaml:"trigger"`
	TxHash       string    `json:"tx_hash,omitempty" yaml:"tx_hash,omitempty"`
	RequestID    string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at" yaml:"dispatched_at"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
}

type statusDocument struct {
	EntityID             string            `json:"entity_id" yaml:"entity_id"`
	HasPendingRequest    bool              `json:"has_pending_request" yaml:"has_pending_request"`
	PendingRequests      int               `json:"pending_requests" yaml:"pending_requests"`
	CanRequestUpdate     bool              `json:"can_request_update" yaml:"can_request_update"`
	AutoUpdate           bool              `json:"auto_update" yaml:"auto_update"`
	ShouldAutoTrigger    bool              `json:"should_auto_trigger" yaml:"should_auto_trigger"`
	StalenessWindow      string            `json:"staleness_window" yaml:"staleness_window"`
	LastSuccessfulUpdate *eventDocument    `json:"last_successful_update,omitempty" yaml:"last_successful_update,omitempty"`
	FailedRequests       []eventDocument   `json:"failed_requests,omitempty" yaml:"failed_requests,omitempty"`
	InFlight             *inFlightDocument `json:"in_flight,omitempty" yaml:"in_flight,omitempty"`
}

func eventDoc(event domainoracle.Event) eventDocument {
	return eventDocument{
		Key:          event.Key,
		Kind:         string(event.Kind),
		EntityID:     event.EntityID,
		RequestID:    event.RequestID,
		ObservedAt:   event.ObservedAt.UTC(),
		BlockNumber:  event.BlockNumber,
		TxHash:       event.TxHash,
		OldValuation: event.OldValuation,
		NewValuation: event.NewValuation,
		Error:        event.Error,
	}
}

func statusDoc(view oracleuc.StatusView) statusDocument {
	status := view.Status
	doc := statusDocument{
		EntityID:          status.EntityID,
		HasPendingRequest: status.HasPendingRequest,
		PendingRequests:   status.PendingRequests,
		CanRequestUpdate:  status.CanRequestUpdate,
		AutoUpdate:        view.AutoUpdate,
		ShouldAutoTrigger: view.ShouldAutoTrigger,
		StalenessWindow:   view.StalenessWindow.String(),
	}
	if last := status.LastSuccessfulUpdate; last != nil {
		lastDoc := eventDoc(*last)
		doc.LastSuccessfulUpdate = &lastDoc
	}
	for _, failed := range status.FailedRequests {
		doc.FailedRequests = append(doc.FailedRequests, eventDoc(failed))
	}
	if marker := view.InFlight; marker != nil {
		doc.InFlight = &inFlightDocument{
			DispatchID:   marker.DispatchID,
			Trigger:      marker.Trigger,
			TxHash:       marker.TxHash,
			RequestID:    marker.RequestID,
			DispatchedAt: marker.DispatchedAt.UTC(),
			ExpiresAt:    marker.ExpiresAt.UTC(),
		}
	}
	return doc
}

func parseOutput(raw string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(raw)); format {
	case "", outputText:
		return outputText, nil
	case outputYAML, "yml":
		return outputYAML, nil
	case outputJSON:
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unsupported output %q, want text, yaml or json", raw)
	}
}

// writeStructured renders value as yaml or json.
func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	default:
		return fmt.Errorf("unsupported structured output %q", format)
	}
}
