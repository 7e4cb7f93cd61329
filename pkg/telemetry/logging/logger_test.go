package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"edgelab-hq/tessera/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"ERROR", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"", FormatJSON, false},
		{"text", FormatText, false},
		{"TEXT", FormatText, false},
		{"xml", FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "verbose", Format: "json"})
		if err == nil {
			t.Fatal("expected error for invalid level")
		}
		if !strings.Contains(err.Error(), "invalid log level") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "info", Format: "xml"})
		if err == nil {
			t.Fatal("expected error for invalid format")
		}
		if !strings.Contains(err.Error(), "invalid log format") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNewWithWriter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("decision made", "experiment", "new_checkout", "variant", "treatment")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if entry["msg"] != "decision made" {
		t.Errorf("expected msg %q, got %q", "decision made", entry["msg"])
	}
	if entry["experiment"] != "new_checkout" {
		t.Errorf("expected experiment %q, got %q", "new_checkout", entry["experiment"])
	}
	if entry["variant"] != "treatment" {
		t.Errorf("expected variant %q, got %q", "treatment", entry["variant"])
	}
}

func TestNewWithWriter_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("config reloaded", "generation", 3)

	out := buf.String()
	if !strings.Contains(out, "msg=\"config reloaded\"") {
		t.Errorf("expected text format message, got: %s", out)
	}
	if !strings.Contains(out, "generation=3") {
		t.Errorf("expected generation attribute, got: %s", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected info message filtered at warn level, got: %s", buf.String())
	}

	logger.Warn("should be logged")
	if buf.Len() == 0 {
		t.Error("expected warn message to be logged")
	}
}

func TestNewWithWriter_AddSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json", AddSource: true}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("with source")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := entry["source"]; !ok {
		t.Errorf("expected source field in output, got: %s", buf.String())
	}
}

func TestRedaction_SensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Warn("identity resolution degraded",
		"experiment", "new_checkout",
		"auth_token", "tok-1234567890",
	)

	out := buf.String()
	if strings.Contains(out, "tok-1234567890") {
		t.Errorf("expected token masked, got: %s", out)
	}
	if !strings.Contains(out, "tok-***") {
		t.Errorf("expected masked token prefix, got: %s", out)
	}
	if !strings.Contains(out, "new_checkout") {
		t.Errorf("expected non-sensitive attribute untouched, got: %s", out)
	}
}

func TestRedaction_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	// Attributes added via With go through the same handler.
	logger.With("api_key", "sk-abc123xyz").Info("request")

	out := buf.String()
	if strings.Contains(out, "sk-abc123xyz") {
		t.Errorf("expected api_key masked, got: %s", out)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"auth_token", true},
		{"authentication_token", true},
		{"AuthToken", true},
		{"password", true},
		{"client_secret", true},
		{"Authorization", true},
		{"api_key", true},
		{"experiment", false},
		{"variant", false},
		{"user_id", false},
		{"component", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSensitiveKey(tt.key); got != tt.want {
				t.Errorf("isSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "***"},
		{"abcdefgh", "abcd***"},
		{"tok-1234567890", "tok-***"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := maskValue(tt.input); got != tt.want {
				t.Errorf("maskValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
