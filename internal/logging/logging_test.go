package logging

import (
	"strings"
	"testing"
)

func TestTestLoggerCapturesOutput(t *testing.T) {
	logger, buf := NewTestLogger()

	logger.Info("hello", "key", "value")
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "key=value") {
		t.Errorf("log output = %q", out)
	}
}

func TestDebugGatedByMode(t *testing.T) {
	logger, buf := NewTestLogger()
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("test logger should emit debug lines")
	}

	buf.Reset()
	logger.debug = false
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line emitted while debug mode off: %q", buf.String())
	}
}

func TestDebugObject(t *testing.T) {
	logger, buf := NewTestLogger()
	logger.DebugObject("config", struct{ Name string }{Name: "osmedit"})
	if !strings.Contains(buf.String(), "osmedit") {
		t.Errorf("object dump missing content: %q", buf.String())
	}
}

func TestGetDefaultIsSingleton(t *testing.T) {
	if GetDefault() != GetDefault() {
		t.Error("GetDefault should return the same instance")
	}
}
