package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("token accounting complete", "tokens_used", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "token accounting complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["tokens_used"] != 2.0 {
		t.Errorf("tokens_used = %v, want 2", entry["tokens_used"])
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info log emitted below the configured level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("warn log missing")
	}
}

func TestSetup_InvalidInputs(t *testing.T) {
	if _, err := Setup(Config{Level: "loud"}); err == nil {
		t.Error("expected invalid level to be rejected")
	}
	if _, err := Setup(Config{Format: "xml"}); err == nil {
		t.Error("expected invalid format to be rejected")
	}
}
