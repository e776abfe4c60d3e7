package logger

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, buf, "gears-test")
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")
	l.Info("still logs")
	if !strings.Contains(buf.String(), "still logs") {
		t.Errorf("expected info output with fallback level, got %q", buf.String())
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").WithComponent("builder").WithFields(Fields(FieldReader, "KeysReader"))
	l.Info("submitted", Fields(FieldSteps, 3))

	out := buf.String()
	for _, want := range []string{`"component":"builder"`, `"reader":"KeysReader"`, `"steps":3`, `"message":"submitted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %q", want, out)
		}
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithError(fmt.Errorf("boom")).Error("failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Debug("debug msg")
	l.Info("info msg")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("warn msg")
	if !strings.Contains(buf.String(), "warn msg") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestLogAt(t *testing.T) {
	tests := []struct {
		severity string
		level    string
	}{
		{"notice", "info"},
		{"warning", "warn"},
		{"verbose", "debug"},
		{"debug", "trace"},
		{"whatever", "info"},
	}
	for _, tc := range tests {
		t.Run(tc.severity, func(t *testing.T) {
			var buf bytes.Buffer
			newJSONLogger(&buf, "trace").LogAt(tc.severity, "hello")
			if !strings.Contains(buf.String(), fmt.Sprintf(`"level":"%s"`, tc.level)) {
				t.Errorf("expected level %s, got %q", tc.level, buf.String())
			}
		})
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", Fields("k", "v"))
	l.LogAt("warning", "ignored")
}

func TestGlobalLogger(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
	l := Nop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
	if WithComponent("x") == nil {
		t.Error("expected component logger")
	}
	globalLogger = nil
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{"key-value pairs", []interface{}{"op", "run", "steps", 4}, map[string]interface{}{"op": "run", "steps": 4}},
		{"odd number of args", []interface{}{"op", "run", "trailing"}, map[string]interface{}{"op": "run"}},
		{"non-string key skipped", []interface{}{123, "value", "key", "val"}, map[string]interface{}{"key": "val"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Errorf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("run", fmt.Errorf("something broke"))
	if fields[FieldOperation] != "run" {
		t.Errorf("expected operation 'run', got %v", fields[FieldOperation])
	}
	if fields[FieldError] != "something broke" {
		t.Errorf("expected error 'something broke', got %v", fields[FieldError])
	}
}

func TestMergeWithDuration(t *testing.T) {
	fields := MergeWithDuration(nil, 150*time.Millisecond)
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}
