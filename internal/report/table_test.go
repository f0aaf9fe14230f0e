package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"adfleet/internal/directory"
	"adfleet/internal/dispatch"
	"adfleet/internal/remote"
	"adfleet/internal/target"
)

func sampleRound() *dispatch.Round {
	return &dispatch.Round{
		ID:      "round-1",
		Command: "hostname",
		Targets: []target.Target{
			{Name: "DB-OP1-001"},
			{Name: "DB-OP1-002"},
		},
		Outcomes: []remote.Outcome{
			remote.Failure("DB-OP1-002", "connection refused", time.Second),
			remote.Success("DB-OP1-001", "db-op1-001\r\n", time.Second),
		},
	}
}

func TestWriteRound(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRound(&buf, sampleRound()); err != nil {
		t.Fatalf("WriteRound error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Command execution results: hostname") {
		t.Error("missing command header")
	}
	if !strings.Contains(out, "Summary: 1/2 computers completed successfully") {
		t.Errorf("missing summary, output:\n%s", out)
	}

	// Rows are sorted by computer name regardless of arrival order.
	first := strings.Index(out, "DB-OP1-001")
	second := strings.Index(out, "DB-OP1-002")
	if first < 0 || second < 0 || first > second {
		t.Errorf("rows not sorted by name, output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"long truncated", "hello world", 5, "hello..."},
		{"newlines collapsed", "line1\r\nline2\nline3", 50, "line1 line2 line3"},
		{"trailing whitespace trimmed", "out\n", 10, "out"},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestWriteComputers(t *testing.T) {
	var buf bytes.Buffer
	computers := []directory.Computer{
		{Name: "DB-1", DNSHostName: "db-1.corp.local", OS: "Windows Server 2022"},
		{Name: "DB-2"},
	}
	if err := WriteComputers(&buf, computers); err != nil {
		t.Fatalf("WriteComputers error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "db-1.corp.local") {
		t.Error("missing hostname column")
	}
	if !strings.Contains(out, "N/A") {
		t.Error("address-less computer must render N/A")
	}
}

func TestWriteUsers(t *testing.T) {
	var buf bytes.Buffer
	users := []directory.User{
		{CommonName: "Jordan Fleet", SAMAccountName: "jfleet", Mail: "jfleet@corp.local"},
	}
	if err := WriteUsers(&buf, users); err != nil {
		t.Fatalf("WriteUsers error: %v", err)
	}
	if !strings.Contains(buf.String(), "jfleet@corp.local") {
		t.Error("missing mail column")
	}
}
