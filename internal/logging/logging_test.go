package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.WithField("session", "s1").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
	if entry["session"] != "s1" || entry["msg"] != "hello" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", logger.GetLevel())
	}
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug output leaked at info level")
	}
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "text", nil); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Error("expected error for bad format")
	}
}
