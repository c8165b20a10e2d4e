package pkg

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("ParseLogLevel(%q) error = %v, want ErrInvalidParameter", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	if f, err := ParseLogFormat("json"); err != nil || f != LogFormatJSON {
		t.Errorf("ParseLogFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseLogFormat(""); err != nil || f != LogFormatText {
		t.Errorf("ParseLogFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseLogFormat("xml"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseLogFormat(xml) error = %v, want ErrInvalidParameter", err)
	}
	if LogFormatJSON.String() != "json" || LogFormatText.String() != "text" {
		t.Error("LogFormat.String() mismatch")
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger.Info("test message")
	if !strings.Contains(buf.String(), `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", buf.String())
	}
}

func TestComponentLogging(t *testing.T) {
	original := DefaultLogger
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
	}{
		{"debug", LogDebug, ComponentSession},
		{"info", LogInfo, ComponentLoader},
		{"warn", LogWarn, ComponentTransport},
		{"error", LogError, ComponentHAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetLogLevel(slog.LevelDebug)
			SetLogger(NewLogger(&buf, nil))

			tt.log(tt.component, tt.name+" message", "key", "value")
			output := buf.String()
			if !strings.Contains(output, tt.name+" message") {
				t.Errorf("log missing message: %s", output)
			}
			if !strings.Contains(output, "component="+string(tt.component)) {
				t.Errorf("log missing component: %s", output)
			}
			if !strings.Contains(output, "key=value") {
				t.Errorf("log missing attributes: %s", output)
			}
		})
	}
}

func TestSetLogOutput(t *testing.T) {
	original := DefaultLogger
	defer SetLogger(original)

	var buf bytes.Buffer
	SetLogOutput(&buf, LogFormatJSON)
	LogError(ComponentEngine, "json output")
	if !strings.Contains(buf.String(), `"component":"engine"`) {
		t.Errorf("JSON output missing component: %s", buf.String())
	}
}
