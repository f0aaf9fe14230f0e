package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestQuietSuppressesInfoNotError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: FormatText, Output: &buf, Quiet: true})

	logger.Info("should not appear")
	logger.Warn("should not appear either")
	logger.Error("must appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("quiet logger leaked info output:\n%s", out)
	}
	if !strings.Contains(out, "must appear") {
		t.Errorf("quiet logger dropped error output:\n%s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Info("dispatch started", "targets", 5)

	out := buf.String()
	if !strings.Contains(out, `"msg":"dispatch started"`) {
		t.Errorf("expected JSON output, got:\n%s", out)
	}
	if !strings.Contains(out, `"targets":5`) {
		t.Errorf("missing structured attribute:\n%s", out)
	}
}

func TestErrorLevelFiltersInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelError, Format: FormatText, Output: &buf})

	logger.Info("below threshold")
	logger.Error("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Errorf("error-level logger emitted info:\n%s", out)
	}
	if !strings.Contains(out, "at threshold") {
		t.Errorf("error-level logger dropped error:\n%s", out)
	}
}

func TestLogBindOmitsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: FormatText, Output: &buf})

	logger.LogBind("dc01.corp.local", 389, `CORP\svc_fleet`, 120*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "dc01.corp.local") {
		t.Errorf("bind log missing server:\n%s", out)
	}
	if strings.Contains(strings.ToLower(out), "password") {
		t.Errorf("bind log must never mention credentials:\n%s", out)
	}
}

func TestNewLoggerFromConfig(t *testing.T) {
	logger := NewLoggerFromConfig("error", "json", true)
	if !logger.IsQuiet() {
		t.Fatal("quiet flag not carried through")
	}
}
