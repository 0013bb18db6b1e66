package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelInfo, "json")

	log.Info("dispatched", MessageID("m-1"), Tenant("acme"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[FieldMessageID] != "m-1" {
		t.Errorf("expected %s=m-1, got %v", FieldMessageID, entry[FieldMessageID])
	}
	if entry[FieldTenant] != "acme" {
		t.Errorf("expected %s=acme, got %v", FieldTenant, entry[FieldTenant])
	}
}

func TestNewWithWriterTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelWarn, "text")

	log.Info("hidden")
	log.Warn("shown", Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered, got %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error attribute in %q", out)
	}
}

func TestAttributes(t *testing.T) {
	if a := InvocationID("inv"); a.Key != FieldInvocationID || a.Value.String() != "inv" {
		t.Errorf("unexpected attribute %v", a)
	}
	if a := Duration(42); a.Key != FieldDuration || a.Value.Int64() != 42 {
		t.Errorf("unexpected attribute %v", a)
	}
}
