package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestZapLoggerWritesStructuredField(t *testing.T) {
	var buf bytes.Buffer
	log := New(newSugared(&buf, zapcore.InfoLevel))

	log.InfoObj("load finished", "load_meta", map[string]any{"state": "texas", "count": 2})
	log.DebugObj("hidden", "k", 1)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "load finished" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	meta, ok := entry["load_meta"].(map[string]any)
	if !ok || meta["state"] != "texas" {
		t.Fatalf("load_meta = %#v", entry["load_meta"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts field in %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	S = nil
	InfoObj("msg", "k", 1)
	ErrorObj("msg", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := New(nil).(NopLogger); !ok {
		t.Fatalf("New(nil) should return NopLogger")
	}
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("Ensure(nil) should return NopLogger")
	}
}
