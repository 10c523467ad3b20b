package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	lvl, _ := zerolog.ParseLevel(level)
	return &Logger{logger: zl.Level(lvl)}, &buf
}

func TestLogger_InfoWritesJSON(t *testing.T) {
	l, buf := newBufferLogger("info")

	l.Info("state changed", Fields(FieldBreaker, "payments", FieldState, "open"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["breaker"] != "payments" {
		t.Errorf("expected breaker field, got %v", entry)
	}
	if entry["state"] != "open" {
		t.Errorf("expected state field, got %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger("warn")

	l.Debug("hidden")
	l.Info("also hidden")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/info output should be filtered: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn output missing: %s", out)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	l, buf := newBufferLogger("info")

	l.WithComponent("plugin").Info("registered")

	if !strings.Contains(buf.String(), `"component":"plugin"`) {
		t.Errorf("component tag missing: %s", buf.String())
	}
}

func TestFields_IgnoresDanglingValue(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("timestamp should default to true")
	}
}

func TestConfig_ValidateRejectsBadLevel(t *testing.T) {
	cfg := Config{Level: "loud", Format: "json", Output: "stdout"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad level")
	}
}
