package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestContextAttrsOverrideByKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithComponent(ctx, "oracle.sync")
	ctx = WithAttrs(ctx, slog.String("entity_id", "1"))
	ctx = WithAttrs(ctx, slog.String("entity_id", "2"))

	Info(ctx, "tick", slog.Int("fetched", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if record["component"] != "oracle.sync" {
		t.Fatalf("component = %v", record["component"])
	}
	if record["entity_id"] != "2" {
		t.Fatalf("entity_id = %v", record["entity_id"])
	}
	if record["fetched"] != float64(3) {
		t.Fatalf("fetched = %v", record["fetched"])
	}
}

func TestSetupSelectsFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "warn", Format: "json", Writer: &buf})
	t.Cleanup(func() { Setup(Options{}) })

	Info(context.Background(), "hidden")
	Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %s", out)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") || !strings.Contains(out, "shown") {
		t.Fatalf("expected one json record, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
