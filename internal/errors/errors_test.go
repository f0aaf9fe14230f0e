package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil error", nil, UnknownErrorType},
		{"no address", errors.New("no network address on record for HOST1"), NoAddressErrorType},
		{"invalid credentials", errors.New("LDAP bind: invalid credentials"), AuthenticationErrorType},
		{"logon failure", errors.New("winrm: Logon failure: unknown user name or bad password"), AuthenticationErrorType},
		{"deadline exceeded", errors.New("context deadline exceeded"), TimeoutErrorType},
		{"io timeout", errors.New("read tcp: i/o timeout"), TimeoutErrorType},
		{"ldap failure", errors.New("LDAP Result Code 201: search failed"), ResolutionErrorType},
		{"connection refused", errors.New("dial tcp 10.0.0.5:5985: connection refused"), ConnectionErrorType},
		{"http transport", errors.New("http response error: 500"), ConnectionErrorType},
		{"exit status", errors.New("remote command exited with exit status 1"), ExecutionErrorType},
		{"not recognized", errors.New("'foo' is not recognized as an internal or external command"), ExecutionErrorType},
		{"config", errors.New("configuration validation failed"), SetupErrorType},
		{"unclassified", errors.New("something odd happened"), UnknownErrorType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if tt.err == nil {
				if classified != nil {
					t.Fatal("nil error must classify to nil")
				}
				return
			}
			if classified.Type != tt.expected {
				t.Errorf("ClassifyError(%q).Type = %v, want %v", tt.err, classified.Type, tt.expected)
			}
		})
	}
}

func TestClassifyError_PreservesClassified(t *testing.T) {
	original := NewTimeoutError("command timed out after 60s", nil)
	classified := ClassifyError(original)
	if classified != original {
		t.Fatal("an already classified error must pass through unchanged")
	}
}

func TestClassifiedError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := NewConnectionError("session setup failed", inner)

	if !errors.Is(wrapped, inner) {
		t.Fatal("Unwrap must expose the original error")
	}
	if wrapped.Error() != "session setup failed" {
		t.Errorf("Error() = %q, want the message", wrapped.Error())
	}
}

func TestNewNoAddressError(t *testing.T) {
	err := NewNoAddressError("DB-OP1-007")
	if err.Type != NoAddressErrorType {
		t.Errorf("Type = %v, want NoAddressErrorType", err.Type)
	}
	if err.Error() != "no network address on record for DB-OP1-007" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestErrorCollector(t *testing.T) {
	ec := NewErrorCollector()

	if ec.HasErrors() {
		t.Fatal("new collector must be empty")
	}
	if ec.Summary() != "no errors" {
		t.Errorf("empty summary = %q", ec.Summary())
	}

	ec.Add(errors.New("connection refused"))
	ec.Add(errors.New("dial tcp: i/o timeout"))
	ec.Add(errors.New("connection reset by peer"))
	ec.Add(nil)

	if ec.Count() != 3 {
		t.Errorf("Count() = %d, want 3", ec.Count())
	}
	if ec.CountByType(ConnectionErrorType) != 2 {
		t.Errorf("CountByType(connection) = %d, want 2", ec.CountByType(ConnectionErrorType))
	}
	if ec.CountByType(TimeoutErrorType) != 1 {
		t.Errorf("CountByType(timeout) = %d, want 1", ec.CountByType(TimeoutErrorType))
	}

	want := "total: 3 errors (2 connection, 1 timeout)"
	if got := ec.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestErrorTypeString(t *testing.T) {
	for et := SetupErrorType; et <= UnknownErrorType; et++ {
		if et.String() == "" {
			t.Errorf("ErrorType(%d) has no string form", et)
		}
	}
	if s := fmt.Sprint(ErrorType(99)); s != "unknown" {
		t.Errorf("out-of-range type = %q, want unknown", s)
	}
}
