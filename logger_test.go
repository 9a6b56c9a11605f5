package fetchx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

// Light smoke tests ensuring exported logger APIs do not panic and remain
// callable. If richer logging behavior (format, sinks, filtering) is added
// later, expand assertions here.
func TestSimpleLoggerLevels(t *testing.T) {
	logger := NewSimpleLogger()

	logger.Debug("debug message")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message")
	logger.Error("error message")
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Info("request started", "requestID", "abc123", "attempt", 2)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if line["message"] != "request started" {
		t.Errorf("Expected message field, got %v", line["message"])
	}
	if line["requestID"] != "abc123" {
		t.Errorf("Expected requestID field, got %v", line["requestID"])
	}
	if line["attempt"] != float64(2) {
		t.Errorf("Expected attempt field, got %v", line["attempt"])
	}
}

func TestZerologLoggerOddPairs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	// A dangling key must not panic; it is dropped.
	logger.Warn("odd pairs", "dangling")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if line["message"] != "odd pairs" {
		t.Errorf("Expected message field, got %v", line["message"])
	}
}

func TestDefaultRequestIDGenerator(t *testing.T) {
	a := DefaultRequestIDGenerator()
	b := DefaultRequestIDGenerator()

	if len(a) != 8 {
		t.Errorf("Expected 8-character IDs, got %q", a)
	}
	if a == b {
		t.Error("Expected unique IDs")
	}
}
