// Package errors provides error classification and handling for adfleet.
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the classification of errors
type ErrorType int

const (
	// SetupErrorType represents configuration, validation, or initialization errors
	SetupErrorType ErrorType = iota

	// ResolutionErrorType represents directory lookup failures (the search
	// itself failed, not an empty match)
	ResolutionErrorType

	// NoAddressErrorType represents a directory record with no usable network address
	NoAddressErrorType

	// ConnectionErrorType represents network or transport connection errors
	ConnectionErrorType

	// AuthenticationErrorType represents bind or remote-session authentication failures
	AuthenticationErrorType

	// ExecutionErrorType represents remote command execution errors
	ExecutionErrorType

	// TimeoutErrorType represents timeout-related errors
	TimeoutErrorType

	// UnknownErrorType represents unclassified errors
	UnknownErrorType
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case SetupErrorType:
		return "setup"
	case ResolutionErrorType:
		return "resolution"
	case NoAddressErrorType:
		return "no-address"
	case ConnectionErrorType:
		return "connection"
	case AuthenticationErrorType:
		return "authentication"
	case ExecutionErrorType:
		return "execution"
	case TimeoutErrorType:
		return "timeout"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with classification information
type ClassifiedError struct {
	Type     ErrorType
	Original error
	Message  string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	if ce.Original != nil {
		return ce.Original.Error()
	}
	return "unknown error"
}

// Unwrap returns the original error for error unwrapping
func (ce *ClassifiedError) Unwrap() error {
	return ce.Original
}

// ClassifyError analyzes an error and returns its classification
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if ce, ok := err.(*ClassifiedError); ok {
		return ce
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case isNoAddressError(errStr):
		return &ClassifiedError{Type: NoAddressErrorType, Original: err}
	case isAuthenticationError(errStr):
		return &ClassifiedError{Type: AuthenticationErrorType, Original: err}
	case isTimeoutError(errStr):
		return &ClassifiedError{Type: TimeoutErrorType, Original: err}
	case isResolutionError(errStr):
		return &ClassifiedError{Type: ResolutionErrorType, Original: err}
	case isConnectionError(errStr):
		return &ClassifiedError{Type: ConnectionErrorType, Original: err}
	case isExecutionError(errStr):
		return &ClassifiedError{Type: ExecutionErrorType, Original: err}
	case isSetupError(errStr):
		return &ClassifiedError{Type: SetupErrorType, Original: err}
	}

	return &ClassifiedError{Type: UnknownErrorType, Original: err}
}

func isSetupError(errStr string) bool {
	setupKeywords := []string{
		"configuration",
		"invalid",
		"validation failed",
		"missing required",
		"unsupported",
		"malformed",
		"parse error",
	}

	for _, keyword := range setupKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

func isResolutionError(errStr string) bool {
	resolutionKeywords := []string{
		"ldap result code",
		"search failed",
		"directory search",
		"bind failed",
		"no such object",
		"size limit exceeded",
	}

	for _, keyword := range resolutionKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

func isNoAddressError(errStr string) bool {
	return strings.Contains(errStr, "no network address") ||
		strings.Contains(errStr, "no hostname available")
}

func isAuthenticationError(errStr string) bool {
	authKeywords := []string{
		"authentication failed",
		"auth fail",
		"invalid credentials",
		"access denied",
		"unauthorized",
		"logon failure",
		"permission denied (publickey)",
		"no supported authentication methods",
		"unable to authenticate",
	}

	for _, keyword := range authKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

func isTimeoutError(errStr string) bool {
	timeoutKeywords := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"i/o timeout",
	}

	for _, keyword := range timeoutKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

func isConnectionError(errStr string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"connection lost",
		"connection closed",
		"network unreachable",
		"no route to host",
		"host unreachable",
		"broken pipe",
		"handshake failed",
		"unexpected eof",
		"http response error",
	}

	for _, keyword := range connectionKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

func isExecutionError(errStr string) bool {
	executionKeywords := []string{
		"command not found",
		"is not recognized",
		"exit status",
		"exit code",
		"non-zero exit",
		"process exited",
	}

	for _, keyword := range executionKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// NewSetupError creates a new setup error
func NewSetupError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: SetupErrorType, Original: original, Message: message}
}

// NewResolutionError creates a new resolution error. It marks a failure of
// the directory search itself; an empty match set is never a ResolutionError.
func NewResolutionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: ResolutionErrorType, Original: original, Message: message}
}

// NewNoAddressError creates a new no-address error for a directory record
// without a reachable endpoint.
func NewNoAddressError(name string) *ClassifiedError {
	return &ClassifiedError{
		Type:    NoAddressErrorType,
		Message: fmt.Sprintf("no network address on record for %s", name),
	}
}

// NewConnectionError creates a new connection error
func NewConnectionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: ConnectionErrorType, Original: original, Message: message}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: AuthenticationErrorType, Original: original, Message: message}
}

// NewExecutionError creates a new execution error
func NewExecutionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: ExecutionErrorType, Original: original, Message: message}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: TimeoutErrorType, Original: original, Message: message}
}

// ErrorCollector collects and categorizes multiple errors
type ErrorCollector struct {
	errors map[ErrorType][]error
	count  int
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make(map[ErrorType][]error),
	}
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}

	classified := ClassifyError(err)
	ec.errors[classified.Type] = append(ec.errors[classified.Type], err)
	ec.count++
}

// Count returns the total number of errors
func (ec *ErrorCollector) Count() int {
	return ec.count
}

// CountByType returns the number of errors of a specific type
func (ec *ErrorCollector) CountByType(errorType ErrorType) int {
	return len(ec.errors[errorType])
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	return ec.count > 0
}

// GetErrorsByType returns all errors of a specific type
func (ec *ErrorCollector) GetErrorsByType(errorType ErrorType) []error {
	return ec.errors[errorType]
}

// Summary returns a summary of all collected errors
func (ec *ErrorCollector) Summary() string {
	if ec.count == 0 {
		return "no errors"
	}

	var parts []string
	for errorType := SetupErrorType; errorType <= UnknownErrorType; errorType++ {
		if n := len(ec.errors[errorType]); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, errorType.String()))
		}
	}

	return fmt.Sprintf("total: %d errors (%s)", ec.count, strings.Join(parts, ", "))
}
