package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestHit(t *testing.T) {
	originalLogger := log.Logger
	defer func() { log.Logger = originalLogger }()

	var buf bytes.Buffer

	hitWriter := NewHitLevelWriter(&buf)
	logger := zerolog.New(hitWriter).With().Timestamp().Logger()

	// Set both the global logger and writer to prevent setupGlobalHitWriter from interfering
	log.Logger = logger
	globalHitWriter = hitWriter

	Hit().Str("rule", "aws-access-key-id").Str("confidence", "HIGH").Msg("SECRET")

	output := buf.Bytes()
	if len(output) == 0 {
		t.Fatal("No output captured")
	}

	var logEntry map[string]interface{}
	err := json.Unmarshal(bytes.TrimSpace(output), &logEntry)
	if err != nil {
		t.Fatalf("Failed to parse log output: %v\nOutput: %s", err, string(output))
	}

	if logEntry["level"] != "hit" {
		t.Errorf("Expected level to be 'hit', got '%v'", logEntry["level"])
	}

	if logEntry["rule"] != "aws-access-key-id" {
		t.Errorf("Expected rule to be 'aws-access-key-id', got '%v'", logEntry["rule"])
	}

	if logEntry["message"] != "SECRET" {
		t.Errorf("Expected message to be 'SECRET', got '%v'", logEntry["message"])
	}

	if _, exists := logEntry["_hit"]; exists {
		t.Error("Internal _hit marker should be removed from output")
	}
}

func TestHitLevelWriterPassesThroughRegularLogs(t *testing.T) {
	var buf bytes.Buffer
	hitWriter := NewHitLevelWriter(&buf)
	logger := zerolog.New(hitWriter).With().Logger()

	logger.Warn().Msg("just a warning")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if logEntry["level"] != "warn" {
		t.Errorf("Expected level to stay 'warn', got '%v'", logEntry["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		want      zerolog.Level
		wantError bool
	}{
		{name: "hit level", level: "hit", want: HitLevel},
		{name: "debug level", level: "debug", want: zerolog.DebugLevel},
		{name: "info level", level: "info", want: zerolog.InfoLevel},
		{name: "invalid level", level: "shout", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.level)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error but got none", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) unexpected error: %v", tt.level, err)
			}
			if level != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, level, tt.want)
			}
		})
	}
}
