package oracle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

const syncWatchlist = `
version = 1

[[property]]
id = "1"
location = "Lagos, NG"
description = "Duplex, 2400 sq ft"

[[property]]
id = "2"
location = "Abuja, NG"
auto_update = false

[[property]]
id = "3"
location = "Accra, GH"
`

func writeWatchlist(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchlist.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write watchlist: %v", err)
	}
	return path
}

func TestSyncOnceTriggersStalePropertyOnce(t *testing.T) {
	env := setupService(t, sourceBatch{
		events: []domainoracle.Event{
			updated("1", at(-48), 10),
			updated("3", at(-1), 11),
		},
		next: 12,
	})
	ctx := context.Background()
	input := SyncInput{WatchlistFile: writeWatchlist(t, syncWatchlist)}

	first, err := env.svc.SyncOnce(ctx, input)
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if first.CursorBefore != 0 || first.CursorAfter != 12 || first.Fetched != 2 || first.Appended != 2 {
		t.Fatalf("first tick = %+v", first)
	}
	if first.Candidates != 3 || first.Triggered != 1 || first.Skipped != 2 || first.Failed != 0 {
		t.Fatalf("first tick decisions = %+v", first)
	}
	if got := env.contract.calls; len(got) != 1 || got[0].entityID != "1" || got[0].size != "2400" {
		t.Fatalf("calls = %+v", got)
	}

	// The request event has not landed yet; the marker holds the property back.
	second, err := env.svc.SyncOnce(ctx, input)
	if err != nil {
		t.Fatalf("second SyncOnce() error = %v", err)
	}
	if second.Triggered != 0 || second.Skipped != 3 {
		t.Fatalf("second tick = %+v", second)
	}
	if env.source.polledFrom[1] != 12 {
		t.Fatalf("second poll should resume from the stored cursor, got %d", env.source.polledFrom[1])
	}

	env.clock.Advance(time.Minute)
	env.source.push(sourceBatch{events: []domainoracle.Event{requested("1", "0xreq1", at(0.01), 13)}, next: 14})
	third, err := env.svc.SyncOnce(ctx, input)
	if err != nil {
		t.Fatalf("third SyncOnce() error = %v", err)
	}
	if third.Triggered != 0 {
		t.Fatalf("pending request must block: %+v", third)
	}

	env.clock.Advance(time.Hour)
	env.source.push(sourceBatch{events: []domainoracle.Event{updated("1", at(0.5), 15)}, next: 16})
	fourth, err := env.svc.SyncOnce(ctx, input)
	if err != nil {
		t.Fatalf("fourth SyncOnce() error = %v", err)
	}
	if fourth.Triggered != 0 || fourth.CursorAfter != 16 {
		t.Fatalf("fresh update must not trigger: %+v", fourth)
	}
	if env.cache.has(inFlightKey("1")) {
		t.Fatalf("update should have resolved the marker")
	}
	if env.contract.callCount() != 1 {
		t.Fatalf("contract calls = %d, want 1", env.contract.callCount())
	}
}

func TestSyncOnceCountsFailedDispatchesAndContinues(t *testing.T) {
	env := setupService(t)
	var logs bytes.Buffer
	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))
	env.contract.results = []fakeResult{
		{err: errors.Join(domainoracle.ErrWriteRejected, errors.New("insufficient funds"))},
	}

	result, err := env.svc.SyncOnce(ctx, SyncInput{WatchlistFile: writeWatchlist(t, `
[[property]]
id = "1"
location = "Lagos, NG"

[[property]]
id = "3"
location = "Accra, GH"
`)})
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if result.Failed != 1 || result.Triggered != 1 || result.Candidates != 2 {
		t.Fatalf("result = %+v", result)
	}
	if env.cache.has(inFlightKey("1")) || !env.cache.has(inFlightKey("3")) {
		t.Fatalf("only the sent dispatch keeps a marker")
	}
	out := logs.String()
	if !strings.Contains(out, "auto valuation request failed") || !strings.Contains(out, "entity_id=1") ||
		!strings.Contains(out, "insufficient funds") {
		t.Fatalf("failed dispatch not logged:\n%s", out)
	}
}

func TestSyncOncePollErrorKeepsCursor(t *testing.T) {
	boom := errors.New("rpc unavailable")
	env := setupService(t, sourceBatch{err: boom})
	ctx := context.Background()
	if err := env.cache.Set(ctx, cursorKey, "40", 0); err != nil {
		t.Fatalf("seed cursor: %v", err)
	}

	result, err := env.svc.SyncOnce(ctx, SyncInput{WatchlistFile: writeWatchlist(t, syncWatchlist)})
	if !errors.Is(err, boom) {
		t.Fatalf("SyncOnce() error = %v, want poll error", err)
	}
	if result.CursorAfter != 40 {
		t.Fatalf("cursor after = %d", result.CursorAfter)
	}
	if env.contract.callCount() != 0 {
		t.Fatalf("no dispatch on a failed poll")
	}
	cursor, _, _ := env.cache.Get(ctx, cursorKey)
	if cursor != "40" {
		t.Fatalf("stored cursor = %q", cursor)
	}
}

func TestSyncOnceHonoursGlobalAutoUpdateSwitch(t *testing.T) {
	env := setupService(t)
	settings := env.svc.Settings()
	settings.AutoUpdate = false
	env.svc.ApplySettings(settings)

	result, err := env.svc.SyncOnce(context.Background(), SyncInput{WatchlistFile: writeWatchlist(t, syncWatchlist)})
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if result.Triggered != 0 || result.Skipped != 3 {
		t.Fatalf("result = %+v", result)
	}
}

func TestSyncOnceMissingWatchlistIsEmpty(t *testing.T) {
	env := setupService(t, sourceBatch{events: []domainoracle.Event{updated("1", at(-1), 3)}, next: ports.Marker(4)})

	result, err := env.svc.SyncOnce(context.Background(), SyncInput{WatchlistFile: filepath.Join(t.TempDir(), "absent.toml")})
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if result.Candidates != 0 || result.Appended != 1 || result.CursorAfter != 4 {
		t.Fatalf("result = %+v", result)
	}
}

func TestSyncOnceLogsRegistryFailures(t *testing.T) {
	env := setupService(t)
	var logs bytes.Buffer
	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))

	result, err := env.svc.SyncOnce(ctx, SyncInput{WatchlistFile: writeWatchlist(t, `
[[property]]
id = "5"
`)})
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if result.Failed != 1 || env.contract.callCount() != 0 {
		t.Fatalf("result = %+v, calls = %d", result, env.contract.callCount())
	}
	out := logs.String()
	if !strings.Contains(out, "auto valuation request failed") || !strings.Contains(out, "property 5 not found") {
		t.Fatalf("registry failure not logged:\n%s", out)
	}
}
