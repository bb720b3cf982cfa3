package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTestLoggerCapturesStructuredFields(t *testing.T) {
	logger, buffer := NewTestLogger(LevelDebug)

	logger.Info("sweep finished", MetricKey, "auc", ScoreKey, 0.91)

	var record map[string]interface{}
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["message"] != "sweep finished" {
		t.Errorf("message = %v", record["message"])
	}
	if record[MetricKey] != "auc" {
		t.Errorf("metric = %v", record[MetricKey])
	}
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	logger, buffer := NewTestLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buffer.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level records should be filtered: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestWithPropagatesFields(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	logger := provider.GetLoggerWithName("Trainer").With(AlgorithmKey, "forest")
	logger.Info("fit start")

	var record map[string]interface{}
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record[ComponentKey] != "Trainer" {
		t.Errorf("component = %v", record[ComponentKey])
	}
	if record[AlgorithmKey] != "forest" {
		t.Errorf("algorithm = %v", record[AlgorithmKey])
	}
}

func TestZerologProviderEmitsComponent(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithLogger(zerolog.New(&buf))

	logger := provider.GetLoggerWithName("Pipeline")
	logger.Info("fit complete", SamplesKey, 120)

	out := buf.String()
	if !strings.Contains(out, `"component":"Pipeline"`) {
		t.Errorf("component tag missing: %s", out)
	}
	if !strings.Contains(out, `"samples":120`) {
		t.Errorf("field missing: %s", out)
	}
}

func TestEnabled(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error should be enabled at info level")
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ToLogLevel(tt.in); got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
