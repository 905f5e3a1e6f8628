package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

func TestRequestUpdateSetsMarkerAndBlocksRepeat(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	result, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "5", Location: "Nairobi, KE", Description: "Loft, 1200 sq ft"})
	if err != nil {
		t.Fatalf("RequestUpdate() error = %v", err)
	}
	if result.DispatchID != "dispatch-1" || result.TxHash != "0xtx1" || result.RequestID != "0xreq1" {
		t.Fatalf("result = %+v", result)
	}
	if got := env.contract.calls[0]; got.entityID != "5" || got.location != "Nairobi, KE" || got.size != "1200" {
		t.Fatalf("call = %+v", got)
	}

	marker, err := env.svc.loadInFlight(ctx, "5")
	if err != nil || marker == nil {
		t.Fatalf("marker = %+v, err = %v", marker, err)
	}
	if marker.RequestID != "0xreq1" || marker.Trigger != TriggerManual || !marker.ExpiresAt.Equal(baseTime.Add(15*time.Minute)) {
		t.Fatalf("marker = %+v", marker)
	}

	_, err = env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "5", Location: "Nairobi, KE"})
	if !errors.Is(err, domainoracle.ErrRequestPending) {
		t.Fatalf("second RequestUpdate() error = %v, want ErrRequestPending", err)
	}
	if env.contract.callCount() != 1 {
		t.Fatalf("contract called %d times", env.contract.callCount())
	}

	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "5", Location: "Nairobi, KE", Force: true}); err != nil {
		t.Fatalf("forced RequestUpdate() error = %v", err)
	}
	if env.contract.callCount() != 2 {
		t.Fatalf("force should bypass the local marker")
	}
	if got := env.notifier.ofType(NotificationDispatched); len(got) != 2 {
		t.Fatalf("dispatched notifications = %+v", got)
	}
}

func TestRequestUpdateMarkerResolvedByMatchingEvent(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "5", Location: "Nairobi, KE"}); err != nil {
		t.Fatalf("RequestUpdate() error = %v", err)
	}
	env.clock.Advance(2 * time.Minute)

	events := []domainoracle.Event{
		requested("5", "0xreq1", at(0.01), 20),
		failed("0xreq1", at(0.02), 21),
	}
	if _, err := env.svc.Ingest(ctx, events); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if env.cache.has(inFlightKey("5")) {
		t.Fatalf("failure for the dispatched request should clear the marker")
	}
	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "5", Location: "Nairobi, KE"}); err != nil {
		t.Fatalf("retry after failure error = %v", err)
	}
}

func TestRequestUpdateRejectedClearsMarker(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.contract.results = []fakeResult{{err: fmt.Errorf("%w: execution reverted", domainoracle.ErrWriteRejected)}}

	_, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "6", Location: "Kigali, RW"})
	if !errors.Is(err, domainoracle.ErrWriteRejected) {
		t.Fatalf("RequestUpdate() error = %v, want ErrWriteRejected", err)
	}
	if env.cache.has(inFlightKey("6")) {
		t.Fatalf("rejected write must not leave a marker")
	}
	failures := env.notifier.ofType(NotificationDispatchFailed)
	if len(failures) != 1 || failures[0].Pending {
		t.Fatalf("failure notifications = %+v", failures)
	}

	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "6", Location: "Kigali, RW"}); err != nil {
		t.Fatalf("retry RequestUpdate() error = %v", err)
	}
}

func TestRequestUpdateUnconfirmedKeepsMarkerUntilExpiry(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.contract.results = []fakeResult{{
		receipt: ports.ValuationRequestReceipt{TxHash: "0xlost", EntityID: "8"},
		err:     fmt.Errorf("%w: receipt wait timed out", domainoracle.ErrWriteUnconfirmed),
	}}

	result, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "8", Location: "Dakar, SN"})
	if !errors.Is(err, domainoracle.ErrWriteUnconfirmed) {
		t.Fatalf("RequestUpdate() error = %v, want ErrWriteUnconfirmed", err)
	}
	if result.TxHash != "0xlost" {
		t.Fatalf("tx hash should be reported: %+v", result)
	}

	marker, err := env.svc.loadInFlight(ctx, "8")
	if err != nil || marker == nil || marker.TxHash != "0xlost" {
		t.Fatalf("marker = %+v, err = %v", marker, err)
	}

	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "8", Location: "Dakar, SN"}); !errors.Is(err, domainoracle.ErrRequestPending) {
		t.Fatalf("RequestUpdate() during unknown outcome error = %v", err)
	}

	env.clock.Advance(15 * time.Minute)
	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "8", Location: "Dakar, SN"}); err != nil {
		t.Fatalf("expired marker must not block: %v", err)
	}
	if env.contract.callCount() != 2 {
		t.Fatalf("contract calls = %d", env.contract.callCount())
	}
}

func TestRequestUpdateRefusesPendingEvenWhenForced(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	if _, err := env.svc.Ingest(ctx, []domainoracle.Event{requested("3", "0xbeef", at(-1), 1)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	_, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "3", Location: "Accra, GH", Force: true})
	if !errors.Is(err, domainoracle.ErrRequestPending) {
		t.Fatalf("RequestUpdate() error = %v, want ErrRequestPending", err)
	}
	if env.contract.callCount() != 0 {
		t.Fatalf("contract must not be called while a request is pending")
	}
}

func TestRequestUpdateReadsLocationFromRegistry(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.registry.properties["11"] = ports.PropertyRecord{ID: "11", Location: "Cape Town, ZA", Description: "Villa 3100 sqft"}

	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "11"}); err != nil {
		t.Fatalf("RequestUpdate() error = %v", err)
	}
	if got := env.contract.calls[0]; got.location != "Cape Town, ZA" || got.size != "3100" {
		t.Fatalf("call = %+v", got)
	}

	env.registry.properties["12"] = ports.PropertyRecord{ID: "12"}
	if _, err := env.svc.RequestUpdate(ctx, RequestUpdateInput{EntityID: "12"}); !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("RequestUpdate() error = %v, want ErrLocationRequired", err)
	}
	if env.cache.has(inFlightKey("12")) {
		t.Fatalf("validation failure must not leave a marker")
	}
}

func TestRequestUpdateWithoutChain(t *testing.T) {
	env := setupService(t)
	env.svc.contract = nil

	if _, err := env.svc.RequestUpdate(context.Background(), RequestUpdateInput{EntityID: "1", Location: "x"}); !errors.Is(err, domainoracle.ErrChainNotConfigured) {
		t.Fatalf("RequestUpdate() error = %v", err)
	}
}
