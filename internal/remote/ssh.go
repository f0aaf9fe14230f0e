package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"adfleet/internal/errors"
	"adfleet/internal/logging"
	"adfleet/internal/target"
)

// DefaultSSHPort is the standard SSH port
const DefaultSSHPort = 22

// SSHRunner executes commands over SSH with password authentication from the
// session credentials. Used for the non-Windows corners of a fleet.
type SSHRunner struct {
	creds  Credentials
	port   int
	logger *logging.Logger
}

// NewSSHRunner creates an SSH runner
func NewSSHRunner(creds Credentials, port int, logger *logging.Logger) *SSHRunner {
	if port <= 0 {
		port = DefaultSSHPort
	}
	return &SSHRunner{creds: creds, port: port, logger: logger}
}

// Run executes the command on the target. Never returns an error; see Runner.
func (r *SSHRunner) Run(ctx context.Context, t target.Target, command string) (out Outcome) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			out = Failure(t.Name, fmt.Sprintf("ssh session panic: %v", rec), time.Since(start))
			if r.logger != nil {
				r.logger.LogSessionError(t.Name, t.Address, fmt.Errorf("ssh session panic: %v", rec))
			}
		}
	}()

	if !t.HasAddress() {
		return Failure(t.Name, errors.NewNoAddressError(t.Name).Error(), time.Since(start))
	}

	config := &ssh.ClientConfig{
		User:            r.creds.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(r.creds.Password)},
		HostKeyCallback: hostKeyCallback(),
		Timeout:         30 * time.Second,
	}

	address := net.JoinHostPort(t.Address, strconv.Itoa(r.port))

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return r.fail(t, fmt.Sprintf("failed to connect to %s: %v", address, err), err, start)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, address, config)
	if err != nil {
		netConn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return r.fail(t, fmt.Sprintf("authentication failed for %s: %v", address, err), err, start)
		}
		return r.fail(t, fmt.Sprintf("ssh handshake failed for %s: %v", address, err), err, start)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return r.fail(t, fmt.Sprintf("failed to create session: %v", err), err, start)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case err := <-done:
		duration := time.Since(start)
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				cause := strings.TrimSpace(stderr.String())
				if cause == "" {
					cause = fmt.Sprintf("remote command exited with status %d", exitErr.ExitStatus())
				}
				if r.logger != nil {
					r.logger.LogOutcome(t.Name, false, duration)
				}
				return Failure(t.Name, cause, duration)
			}
			return r.fail(t, fmt.Sprintf("ssh execution error: %v", err), err, start)
		}

		if r.logger != nil {
			r.logger.LogOutcome(t.Name, true, duration)
		}
		return Success(t.Name, stdout.String(), duration)

	case <-ctx.Done():
		// Ask the remote side to stop, then give up on it.
		_ = session.Signal(ssh.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = session.Signal(ssh.SIGKILL)
		}
		return Failure(t.Name, fmt.Sprintf("command execution timeout: %v", ctx.Err()), time.Since(start))
	}
}

func (r *SSHRunner) fail(t target.Target, cause string, err error, start time.Time) Outcome {
	if r.logger != nil {
		r.logger.LogSessionError(t.Name, t.Address, err)
	}
	return Failure(t.Name, cause, time.Since(start))
}

// hostKeyCallback tries known_hosts first and falls back to accepting any
// key, which a fleet tool connecting to hundreds of unknown hosts needs.
func hostKeyCallback() ssh.HostKeyCallback {
	if homeDir, err := os.UserHomeDir(); err == nil {
		knownHostsFile := homeDir + "/.ssh/known_hosts"
		if _, err := os.Stat(knownHostsFile); err == nil {
			if cb, err := knownhosts.New(knownHostsFile); err == nil {
				return cb
			}
		}
	}

	if cb, err := knownhosts.New("/etc/ssh/ssh_known_hosts"); err == nil {
		return cb
	}

	return ssh.InsecureIgnoreHostKey()
}
