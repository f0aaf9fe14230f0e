// Package remote provides per-target remote command execution for adfleet.
package remote

import "time"

// Status classifies an outcome
type Status int

const (
	// StatusSuccess means the remote command ran and exited zero
	StatusSuccess Status = iota

	// StatusFailure covers every other case: no address, connection or
	// authentication failure, non-zero exit, timeout
	StatusFailure
)

// String returns the reporting form of the status
func (s Status) String() string {
	if s == StatusSuccess {
		return "Success"
	}
	return "Failure"
}

// Outcome is the result of running one command on one target. Exactly one
// Outcome exists per target per dispatch round. Output holds captured stdout
// on success and the failure cause (stderr or error text) otherwise; it is
// always present, possibly empty.
type Outcome struct {
	TargetName string
	Status     Status
	Output     string
	Duration   time.Duration
}

// OK reports whether the outcome is a success
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Success builds a success outcome
func Success(name, output string, d time.Duration) Outcome {
	return Outcome{TargetName: name, Status: StatusSuccess, Output: output, Duration: d}
}

// Failure builds a failure outcome with a human-readable cause
func Failure(name, cause string, d time.Duration) Outcome {
	return Outcome{TargetName: name, Status: StatusFailure, Output: cause, Duration: d}
}
