package remote

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/masterzen/winrm"

	"adfleet/internal/errors"
	"adfleet/internal/logging"
	"adfleet/internal/target"
)

// DefaultWinRMPort is the plain-HTTP WinRM listener port
const DefaultWinRMPort = 5985

// WinRMRunner executes commands over WinRM with NTLM authentication. The
// command is submitted as an encoded PowerShell invocation, matching how
// Windows fleets expect remote commands to arrive.
type WinRMRunner struct {
	creds  Credentials
	port   int
	https  bool
	logger *logging.Logger
}

// NewWinRMRunner creates a WinRM runner
func NewWinRMRunner(creds Credentials, port int, https bool, logger *logging.Logger) *WinRMRunner {
	if port <= 0 {
		port = DefaultWinRMPort
	}
	return &WinRMRunner{creds: creds, port: port, https: https, logger: logger}
}

// Run executes the command on the target. Never returns an error; see Runner.
func (r *WinRMRunner) Run(ctx context.Context, t target.Target, command string) (out Outcome) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			out = Failure(t.Name, fmt.Sprintf("winrm session panic: %v", rec), time.Since(start))
			if r.logger != nil {
				r.logger.LogSessionError(t.Name, t.Address, fmt.Errorf("winrm session panic: %v", rec))
			}
		}
	}()

	if !t.HasAddress() {
		return Failure(t.Name, errors.NewNoAddressError(t.Name).Error(), time.Since(start))
	}

	timeout := 60 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	endpoint := winrm.NewEndpoint(t.Address, r.port, r.https, true, nil, nil, nil, timeout)

	params := winrm.DefaultParameters
	params.TransportDecorator = func() winrm.Transporter {
		return &winrm.ClientNTLM{}
	}

	client, err := winrm.NewClientWithParameters(endpoint, r.creds.User(), r.creds.Password, params)
	if err != nil {
		if r.logger != nil {
			r.logger.LogSessionError(t.Name, t.Address, err)
		}
		return Failure(t.Name, fmt.Sprintf("winrm client setup failed: %v", err), time.Since(start))
	}

	var stdout, stderr bytes.Buffer
	exitCode, err := client.RunWithContext(ctx, winrm.Powershell(command), &stdout, &stderr)
	duration := time.Since(start)

	if err != nil {
		cause := describeTransportError(ctx, err)
		if r.logger != nil {
			r.logger.LogSessionError(t.Name, t.Address, err)
		}
		return Failure(t.Name, cause, duration)
	}

	if exitCode != 0 {
		cause := strings.TrimSpace(stderr.String())
		if cause == "" {
			cause = fmt.Sprintf("remote command exited with status %d", exitCode)
		}
		if r.logger != nil {
			r.logger.LogOutcome(t.Name, false, duration)
		}
		return Failure(t.Name, cause, duration)
	}

	if r.logger != nil {
		r.logger.LogOutcome(t.Name, true, duration)
	}
	return Success(t.Name, stdout.String(), duration)
}

// describeTransportError turns a transport error into the cause string
// carried by the Failure Outcome.
func describeTransportError(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return fmt.Sprintf("command execution timeout: %v", ctx.Err())
	}

	switch errors.ClassifyError(err).Type {
	case errors.AuthenticationErrorType:
		return fmt.Sprintf("authentication failed: %v", err)
	case errors.TimeoutErrorType:
		return fmt.Sprintf("command execution timeout: %v", err)
	default:
		return fmt.Sprintf("connection failed: %v", err)
	}
}
